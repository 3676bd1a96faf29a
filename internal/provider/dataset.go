package provider

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/talgya/famine-sim/internal/climate"
	"github.com/talgya/famine-sim/internal/world"
)

//go:embed dataset.schema.json
var datasetSchemaJSON string

const datasetSchemaURL = "https://famine-sim.local/dataset.schema.json"

// datasetFile is the on-disk YAML layout. Crop and method tables are keyed by name.
type datasetFile struct {
	ReferenceYear int                       `yaml:"reference_year"`
	Regions       []regionDoc               `yaml:"regions"`
	SeaLevel      [][]climate.SeaLevelPoint `yaml:"sea_level"`
}

type regionDoc struct {
	Code            string             `yaml:"code"`
	Population      float64            `yaml:"population"`
	MedianAge       float64            `yaml:"median_age"`
	Births          float64            `yaml:"births"`
	Mortality       float64            `yaml:"mortality"`
	Migration       float64            `yaml:"migration"`
	Undernourished  float64            `yaml:"undernourished"`
	LandTotal       float64            `yaml:"land_total"`
	LandArable      float64            `yaml:"land_arable"`
	CropYield       map[string]float64 `yaml:"crop_yield"`
	CropLand        map[string]float64 `yaml:"crop_land"`
	NeedPerCapita   map[string]float64 `yaml:"need_per_capita"`
	MethodShare     map[string]float64 `yaml:"method_share"`
	Climate         world.CellClimate  `yaml:"climate"`
	TradePenalty    float64            `yaml:"trade_penalty"`
	TaxRate         float64            `yaml:"tax_rate"`
	InfantMortality float64            `yaml:"infant_mortality"`
	LifeExpectancy  float64            `yaml:"life_expectancy"`
	Projections     []Projection       `yaml:"projections"`
}

// Dataset is a provider backed by a YAML file.
type Dataset struct {
	referenceYear int
	records       []RegionRecord
	projections   [world.NumRegions][]Projection
	seaLevel      [][]climate.SeaLevelPoint
	variants      int
}

// LoadDataset reads and validates a dataset file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	d, err := ParseDataset(data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return d, nil
}

// ParseDataset validates YAML against the dataset schema and converts it.
func ParseDataset(data []byte) (*Dataset, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var file datasetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	d := &Dataset{
		referenceYear: file.ReferenceYear,
		seaLevel:      file.SeaLevel,
		variants:      len(file.SeaLevel),
	}

	for _, doc := range file.Regions {
		code, ok := world.RegionFromString(doc.Code)
		if !ok {
			return nil, fmt.Errorf("%w: unknown region %q", ErrInvalidData, doc.Code)
		}
		r := RegionRecord{
			Code:            code,
			Population:      doc.Population,
			MedianAge:       doc.MedianAge,
			Births:          doc.Births,
			Mortality:       doc.Mortality,
			Migration:       doc.Migration,
			Undernourished:  doc.Undernourished,
			LandTotal:       doc.LandTotal,
			LandArable:      doc.LandArable,
			Climate:         doc.Climate,
			TradePenalty:    doc.TradePenalty,
			TaxRate:         doc.TaxRate,
			InfantMortality: doc.InfantMortality,
			LifeExpectancy:  doc.LifeExpectancy,
		}
		if r.Climate.FrostFreeDays == 0 {
			r.Climate.FrostFreeDays = world.FrostFreeDays(r.Climate.NightTemp)
		}
		for _, c := range world.AllCrops() {
			r.CropYield[c] = doc.CropYield[c.String()]
			r.CropLand[c] = doc.CropLand[c.String()]
			r.NeedPerCapita[c] = doc.NeedPerCapita[c.String()]
		}
		for _, m := range world.AllMethods() {
			r.MethodShare[m] = doc.MethodShare[m.String()]
		}
		d.records = append(d.records, r)
		d.projections[code] = doc.Projections
	}

	if err := Validate(d.records); err != nil {
		return nil, err
	}
	for _, code := range world.AllRegions() {
		if len(d.projections[code]) != d.variants {
			return nil, fmt.Errorf("%w: region %s has %d projections for %d sea-level variants",
				ErrInvalidData, code, len(d.projections[code]), d.variants)
		}
	}
	return d, nil
}

func (d *Dataset) ReferenceYear() int { return d.referenceYear }
func (d *Dataset) Variants() int      { return d.variants }

func (d *Dataset) Snapshot() ([]RegionRecord, error) {
	return append([]RegionRecord(nil), d.records...), nil
}

func (d *Dataset) Projection(code world.RegionCode, variant int) (Projection, error) {
	if !code.Valid() || variant < 0 || variant >= len(d.projections[code]) {
		return Projection{}, fmt.Errorf("%w: no projection for region %s variant %d", ErrInvalidData, code, variant)
	}
	return d.projections[code][variant], nil
}

func (d *Dataset) SeaLevelCurve(variant int) ([]climate.SeaLevelPoint, error) {
	if variant < 0 || variant >= len(d.seaLevel) {
		return nil, fmt.Errorf("%w: no sea-level curve for variant %d", ErrInvalidData, variant)
	}
	return append([]climate.SeaLevelPoint(nil), d.seaLevel[variant]...), nil
}

// WriteDataset exports any provider in the dataset file format.
func WriteDataset(w io.Writer, p Provider) error {
	records, err := p.Snapshot()
	if err != nil {
		return err
	}
	file := datasetFile{ReferenceYear: p.ReferenceYear()}
	for variant := range p.Variants() {
		curve, err := p.SeaLevelCurve(variant)
		if err != nil {
			return err
		}
		file.SeaLevel = append(file.SeaLevel, curve)
	}

	for _, r := range records {
		doc := regionDoc{
			Code:            r.Code.String(),
			Population:      r.Population,
			MedianAge:       r.MedianAge,
			Births:          r.Births,
			Mortality:       r.Mortality,
			Migration:       r.Migration,
			Undernourished:  r.Undernourished,
			LandTotal:       r.LandTotal,
			LandArable:      r.LandArable,
			CropYield:       make(map[string]float64, world.NumCrops),
			CropLand:        make(map[string]float64, world.NumCrops),
			NeedPerCapita:   make(map[string]float64, world.NumCrops),
			MethodShare:     make(map[string]float64, world.NumMethods),
			Climate:         r.Climate,
			TradePenalty:    r.TradePenalty,
			TaxRate:         r.TaxRate,
			InfantMortality: r.InfantMortality,
			LifeExpectancy:  r.LifeExpectancy,
		}
		for _, c := range world.AllCrops() {
			doc.CropYield[c.String()] = r.CropYield[c]
			doc.CropLand[c.String()] = r.CropLand[c]
			doc.NeedPerCapita[c.String()] = r.NeedPerCapita[c]
		}
		for _, m := range world.AllMethods() {
			doc.MethodShare[m.String()] = r.MethodShare[m]
		}
		for variant := range p.Variants() {
			proj, err := p.Projection(r.Code, variant)
			if err != nil {
				return err
			}
			doc.Projections = append(doc.Projections, proj)
		}
		file.Regions = append(file.Regions, doc)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return enc.Close()
}

// validateSchema checks raw YAML against the embedded JSON schema. The YAML is
// re-encoded as JSON so the validator sees JSON value types.
func validateSchema(data []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(datasetSchemaURL, strings.NewReader(datasetSchemaJSON)); err != nil {
		return fmt.Errorf("load dataset schema: %w", err)
	}
	schema, err := compiler.Compile(datasetSchemaURL)
	if err != nil {
		return fmt.Errorf("compile dataset schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}
