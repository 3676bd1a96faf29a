package engine

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/talgya/famine-sim/internal/world"
)

// WriteReport writes every per-region field of one committed year as text. The
// output is a pure function of the committed state, so two runs with the same
// seed, data and effects produce identical reports.
func (s *Simulation) WriteReport(w io.Writer, year int) error {
	slices, global, err := s.YearSlices(year)
	if err != nil {
		return fmt.Errorf("report year %d: %w", year, err)
	}
	s.mu.RLock()
	var need [world.NumRegions][world.NumCrops]float64
	for _, code := range world.AllRegions() {
		need[code] = s.world.Region(code).NeedPerCapita
	}
	s.mu.RUnlock()

	bw := bufio.NewWriter(w)
	for _, code := range world.AllRegions() {
		writeRegion(bw, code, &slices[code], &need[code])
	}

	fmt.Fprintf(bw, "World in year %d\n", year)
	fmt.Fprintf(bw, "\tseaLevel : %g\n", global.SeaLevel)
	fmt.Fprintf(bw, "\tpopulation : %g\n", global.Population)
	fmt.Fprintf(bw, "\tundernourished : %g\n", global.Undernourished)
	fmt.Fprintf(bw, "\thdi : %g\n", global.HDI)
	fmt.Fprintf(bw, "\trevenue : %g\n", global.Revenue)
	for _, c := range world.AllCrops() {
		fmt.Fprintf(bw, "\tsupply[%s] : %g\n", c, global.Supply[c])
		fmt.Fprintf(bw, "\tprice[%s] : %g\n", c, global.Price[c])
		fmt.Fprintf(bw, "\tsurplus[%s] : %g\n", c, global.Surplus[c])
		fmt.Fprintf(bw, "\tunmet[%s] : %g\n", c, global.Unmet[c])
	}
	return bw.Flush()
}

func writeRegion(w io.Writer, code world.RegionCode, s *world.YearSlice, need *[world.NumCrops]float64) {
	fmt.Fprintf(w, "Data for region %s in year %d\n", code.Name(), s.Year)
	fmt.Fprintf(w, "\tpopulation : %g\n", s.Population)
	fmt.Fprintf(w, "\tmedianAge : %g\n", s.MedianAge)
	fmt.Fprintf(w, "\tbirths : %g\n", s.Births)
	fmt.Fprintf(w, "\tmortality : %g\n", s.Mortality)
	fmt.Fprintf(w, "\tmigration : %g\n", s.Migration)
	fmt.Fprintf(w, "\tundernourished : %g\n", s.Undernourished)
	fmt.Fprintf(w, "\tlandTotal : %g\n", s.LandTotal)
	fmt.Fprintf(w, "\tlandArable : %g\n", s.LandArable)

	for _, c := range world.AllCrops() {
		fmt.Fprintf(w, "\tcropYield[%s] : %g\n", c, s.CropYield[c])
		fmt.Fprintf(w, "\tcropNeedPerCapita[%s] : %g\n", c, need[c])
		fmt.Fprintf(w, "\tcropProduction[%s] : %g\n", c, s.CropProduction[c])
		fmt.Fprintf(w, "\tlandCrop[%s] : %g\n", c, s.CropLand[c])
	}
	for _, m := range world.AllMethods() {
		fmt.Fprintf(w, "\tcultivationMethod[%s] : %g\n", m, s.MethodShare[m])
	}

	for _, c := range world.AllCrops() {
		fmt.Fprintf(w, "\tcropNeed[%s] : %g\n", c, s.CropNeed[c])
		fmt.Fprintf(w, "\tcropDelivered[%s] : %g\n", c, s.CropDelivered[c])
		fmt.Fprintf(w, "\tcropSatisfied[%s] : %g\n", c, s.CropSatisfied[c])
	}
	fmt.Fprintf(w, "\tprecipitation : %g\n", s.Climate.Precipitation)
	fmt.Fprintf(w, "\tdayTemp : %g\n", s.Climate.DayTemp)
	fmt.Fprintf(w, "\tnightTemp : %g\n", s.Climate.NightTemp)
	fmt.Fprintf(w, "\tfrostFreeDays : %g\n", s.Climate.FrostFreeDays)
	fmt.Fprintf(w, "\ttradePenalty : %g\n", s.TradePenalty)
	for _, e := range s.Events {
		target := "ALL"
		if !e.AllCrops {
			target = e.Crop.String()
		}
		fmt.Fprintf(w, "\tevent[%s] : %s %g\n", e.Kind, target, e.Severity)
	}
	fmt.Fprintf(w, "\tmalnutrition : %g\n", s.Malnutrition)
	fmt.Fprintf(w, "\tinfantMortality : %g\n", s.InfantMortality)
	fmt.Fprintf(w, "\tlifeExpectancy : %g\n", s.LifeExpectancy)
	fmt.Fprintf(w, "\thdi : %g\n", s.HDI)
	if code.Player() {
		fmt.Fprintf(w, "\tnetFarmIncome : %g\n", s.NetFarmIncome)
		fmt.Fprintf(w, "\ttaxRate : %g\n", s.TaxRate)
		fmt.Fprintf(w, "\trevenue : %g\n", s.Revenue)
	}
}

// digestDoc is the hashed form of the committed state.
type digestDoc struct {
	Seed    string                              `json:"seed"`
	Variant int                                 `json:"variant"`
	Regions [world.NumRegions][]world.YearSlice `json:"regions"`
	Global  []world.GlobalSlice                 `json:"global"`
}

// Digest returns a sha256 over the committed history of every region and the
// global series.
func (s *Simulation) Digest() (string, error) {
	s.mu.RLock()
	if err := s.loadedLocked(); err != nil {
		s.mu.RUnlock()
		return "", err
	}
	doc := digestDoc{Seed: s.Fingerprint(), Variant: s.variant}
	for _, code := range world.AllRegions() {
		doc.Regions[code] = s.world.Region(code).View().History
	}
	for year := s.world.StartYear; year <= s.world.Year; year++ {
		g, err := s.world.Global(year)
		if err != nil {
			s.mu.RUnlock()
			return "", err
		}
		doc.Global = append(doc.Global, *g)
	}
	s.mu.RUnlock()

	h := sha256.New()
	if err := json.NewEncoder(h).Encode(doc); err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
