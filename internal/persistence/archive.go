package persistence

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/famine-sim/internal/engine"
	"github.com/talgya/famine-sim/internal/world"
)

// YearRecord is one archived year.
type YearRecord struct {
	Year     int                               `json:"year"`
	Global   world.GlobalSlice                 `json:"global"`
	Regions  [world.NumRegions]world.YearSlice `json:"regions"`
	Warnings []engine.Warning                  `json:"warnings,omitempty"`
}

// Archive appends committed years to a zstd-compressed JSONL file.
type Archive struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// OpenArchive creates <dir>/<runID>.jsonl.zst, replacing an existing file.
func OpenArchive(dir, runID string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive dir: %w", err)
	}
	path := filepath.Join(dir, runID+".jsonl.zst")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("archive encoder: %w", err)
	}
	return &Archive{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// Path returns the archive file path.
func (a *Archive) Path() string {
	return a.path
}

// Write appends one record.
func (a *Archive) Write(rec YearRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.w == nil {
		return fmt.Errorf("archive %s is closed", a.path)
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := a.w.Write(b); err != nil {
		return err
	}
	return a.w.WriteByte('\n')
}

// YearCommitted implements engine.Observer.
func (a *Archive) YearCommitted(_ context.Context, sim *engine.Simulation, year int) error {
	slices, global, err := sim.YearSlices(year)
	if err != nil {
		return err
	}
	return a.Write(YearRecord{Year: year, Global: global, Regions: slices, Warnings: sim.Warnings()})
}

// Close flushes the compressed stream and closes the file.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.w == nil {
		return nil
	}

	err := a.w.Flush()
	if cerr := a.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := a.f.Close(); err == nil {
		err = cerr
	}
	a.w, a.enc, a.f = nil, nil, nil
	return err
}

// ReadArchive decodes every record of an archive file.
func ReadArchive(path string) ([]YearRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var out []YearRecord
	for sc.Scan() {
		var rec YearRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", filepath.Base(path), len(out)+1, err)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}
