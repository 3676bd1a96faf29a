package provider

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/famine-sim/internal/world"
)

func TestSynthetic_Valid(t *testing.T) {
	p := NewSynthetic()

	records, err := p.Snapshot()
	require.NoError(t, err)
	require.NoError(t, Validate(records))
	require.NoError(t, ValidateProjections(p))

	assert.Equal(t, SyntheticReferenceYear, p.ReferenceYear())
	assert.Equal(t, 3, p.Variants())
	for i, r := range records {
		assert.Equal(t, world.RegionCode(i), r.Code)
	}
}

func TestSynthetic_ProductionCoversNeed(t *testing.T) {
	records, err := NewSynthetic().Snapshot()
	require.NoError(t, err)

	for _, c := range world.AllCrops() {
		production, need := 0.0, 0.0
		for _, r := range records {
			production += r.CropYield[c] * r.CropLand[c]
			need += r.Population * r.NeedPerCapita[c]
		}
		assert.InDelta(t, syntheticCoverage, production/need, 1e-9, "crop %s", c)
	}
}

func TestSynthetic_UnknownVariant(t *testing.T) {
	p := NewSynthetic()
	_, err := p.Projection(world.RegionUSA, 7)
	assert.True(t, errors.Is(err, ErrInvalidData))
	_, err = p.SeaLevelCurve(-1)
	assert.True(t, errors.Is(err, ErrInvalidData))
}

func TestValidate_Rejects(t *testing.T) {
	base, err := NewSynthetic().Snapshot()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]RegionRecord) []RegionRecord
	}{
		{"missing region", func(r []RegionRecord) []RegionRecord { return r[:world.NumRegions-1] }},
		{"duplicate region", func(r []RegionRecord) []RegionRecord { r[1].Code = world.RegionUSA; return r }},
		{"crop land above arable", func(r []RegionRecord) []RegionRecord { r[0].CropLand[0] = r[0].LandArable * 2; return r }},
		{"method shares", func(r []RegionRecord) []RegionRecord { r[0].MethodShare[0] = 0.5; return r }},
		{"negative population", func(r []RegionRecord) []RegionRecord { r[2].Population = -1; return r }},
		{"arable above total", func(r []RegionRecord) []RegionRecord { r[3].LandArable = r[3].LandTotal + 1; return r }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := tt.mutate(append([]RegionRecord(nil), base...))
			assert.True(t, errors.Is(Validate(records), ErrInvalidData))
		})
	}
}

func TestDataset_RoundTrip(t *testing.T) {
	src := NewSynthetic()

	var buf bytes.Buffer
	require.NoError(t, WriteDataset(&buf, src))

	path := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	d, err := LoadDataset(path)
	require.NoError(t, err)

	want, _ := src.Snapshot()
	got, _ := d.Snapshot()
	assert.Equal(t, want, got)
	assert.Equal(t, src.ReferenceYear(), d.ReferenceYear())
	assert.Equal(t, src.Variants(), d.Variants())

	for variant := range src.Variants() {
		wantCurve, _ := src.SeaLevelCurve(variant)
		gotCurve, err := d.SeaLevelCurve(variant)
		require.NoError(t, err)
		assert.Equal(t, wantCurve, gotCurve)

		wantProj, _ := src.Projection(world.RegionSouthAsia, variant)
		gotProj, err := d.Projection(world.RegionSouthAsia, variant)
		require.NoError(t, err)
		assert.Equal(t, wantProj, gotProj)
	}
}

func TestDataset_SchemaViolations(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDataset(&buf, NewSynthetic()))
	good := buf.String()

	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "regions: [unterminated"},
		{"empty", "{}"},
		{"unknown region", strings.Replace(good, "code: OCE", "code: ATL", 1)},
		{"unknown crop", strings.Replace(good, "WHEAT:", "BARLEY:", 1)},
		{"unknown field", good + "extra: 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDataset([]byte(tt.doc))
			assert.True(t, errors.Is(err, ErrInvalidData), "got %v", err)
		})
	}
}

func TestLoadDataset_MissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
