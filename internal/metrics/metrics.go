// Package metrics exports committed simulation years as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/talgya/famine-sim/internal/engine"
	"github.com/talgya/famine-sim/internal/world"
)

const (
	namespace = "famine"
	subsystem = "sim"
)

// Collector updates gauges from each committed year. It implements engine.Observer.
type Collector struct {
	year           prometheus.Gauge
	population     prometheus.Gauge
	undernourished prometheus.Gauge
	hdi            prometheus.Gauge
	seaLevel       prometheus.Gauge

	cropPrice   *prometheus.GaugeVec
	cropSupply  *prometheus.GaugeVec
	cropSurplus *prometheus.GaugeVec

	regionPopulation     *prometheus.GaugeVec
	regionUndernourished *prometheus.GaugeVec
	regionHDI            *prometheus.GaugeVec
	regionRevenue        *prometheus.GaugeVec

	yearsTotal    prometheus.Counter
	warningsTotal *prometheus.CounterVec
	eventsTotal   *prometheus.CounterVec
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help})
}

func gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help}, labels)
}

// NewCollector creates the metrics and registers them.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		year:           gauge("year", "Latest committed simulation year"),
		population:     gauge("population", "World population"),
		undernourished: gauge("undernourished_fraction", "Population-weighted undernourished fraction"),
		hdi:            gauge("hdi", "Population-weighted human development index"),
		seaLevel:       gauge("sea_level_meters", "Sea level above the start year"),

		cropPrice:   gaugeVec("crop_price", "Cleared world price per tonne", "crop"),
		cropSupply:  gaugeVec("crop_supply_tonnes", "World production before distribution", "crop"),
		cropSurplus: gaugeVec("crop_surplus_tonnes", "Supply left after distribution", "crop"),

		regionPopulation:     gaugeVec("region_population", "Region population", "region"),
		regionUndernourished: gaugeVec("region_undernourished_fraction", "Region undernourished fraction", "region"),
		regionHDI:            gaugeVec("region_hdi", "Region human development index", "region"),
		regionRevenue:        gaugeVec("region_revenue", "Player region tax revenue", "region"),

		yearsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "years_total", Help: "Years committed since start",
		}),
		warningsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "warnings_total", Help: "Simulation warnings by phase",
		}, []string{"phase"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "events_total", Help: "Special events drawn by kind",
		}, []string{"kind"}),
	}

	collectors := []prometheus.Collector{
		c.year, c.population, c.undernourished, c.hdi, c.seaLevel,
		c.cropPrice, c.cropSupply, c.cropSurplus,
		c.regionPopulation, c.regionUndernourished, c.regionHDI, c.regionRevenue,
		c.yearsTotal, c.warningsTotal, c.eventsTotal,
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// YearCommitted implements engine.Observer.
func (c *Collector) YearCommitted(_ context.Context, sim *engine.Simulation, year int) error {
	slices, g, err := sim.YearSlices(year)
	if err != nil {
		return err
	}
	c.Record(slices, g, sim.Warnings())
	return nil
}

// Record sets the gauges from one year.
func (c *Collector) Record(slices [world.NumRegions]world.YearSlice, g world.GlobalSlice, warnings []engine.Warning) {
	c.year.Set(float64(g.Year))
	c.population.Set(g.Population)
	c.undernourished.Set(g.Undernourished)
	c.hdi.Set(g.HDI)
	c.seaLevel.Set(g.SeaLevel)

	for _, crop := range world.AllCrops() {
		name := crop.String()
		c.cropPrice.WithLabelValues(name).Set(g.Price[crop])
		c.cropSupply.WithLabelValues(name).Set(g.Supply[crop])
		c.cropSurplus.WithLabelValues(name).Set(g.Surplus[crop])
	}

	for _, code := range world.AllRegions() {
		s := &slices[code]
		name := code.String()
		c.regionPopulation.WithLabelValues(name).Set(s.Population)
		c.regionUndernourished.WithLabelValues(name).Set(s.Undernourished)
		c.regionHDI.WithLabelValues(name).Set(s.HDI)
		if code.Player() {
			c.regionRevenue.WithLabelValues(name).Set(s.Revenue)
		}
		for _, e := range s.Events {
			c.eventsTotal.WithLabelValues(e.Kind.String()).Inc()
		}
	}

	for _, w := range warnings {
		c.warningsTotal.WithLabelValues(w.Phase).Inc()
	}
	c.yearsTotal.Inc()
}
