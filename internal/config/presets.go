package config

import "sort"

var Presets = map[string]map[string]*Config{
	"decay": {
		"canonical": {
			Model: "decay", Scheme: "dopri54", Duration: 5.0,
			Tolerance: ToleranceConfig{Abs: 1e-8, Rel: 1e-8},
			InitState: InitStateConfig{Value: 1.0},
		},
		"coarse": {
			Model: "decay", Scheme: "bs32", Duration: 5.0,
			Tolerance: ToleranceConfig{Abs: 1e-4, Rel: 1e-4},
			InitState: InitStateConfig{Value: 1.0},
		},
	},
	"harmonic": {
		"unit": {
			Model: "harmonic", Scheme: "dopri54", Duration: 20.0,
			Tolerance: ToleranceConfig{Abs: 1e-10, Rel: 1e-10},
			InitState: InitStateConfig{X: 1.0},
		},
	},
	"ballistic": {
		"impact": {
			Model: "ballistic", Scheme: "dopri54", Duration: 10.0,
			Tolerance: ToleranceConfig{Abs: 1e-9, Rel: 1e-9},
			InitState: InitStateConfig{Y: 10, VX: 5, VY: 5},
			Detectors: DetectorConfig{Impact: true, TimeTol: 1e-9},
		},
		"bounce": {
			Model: "ballistic", Scheme: "dopri54", Duration: 10.0,
			Tolerance: ToleranceConfig{Abs: 1e-9, Rel: 1e-9},
			InitState: InitStateConfig{Y: 10, VX: 5},
			Detectors: DetectorConfig{Impact: true, Restitution: 0.7, TimeTol: 1e-9},
		},
		"apex": {
			Model: "ballistic", Scheme: "dopri54", Duration: 10.0,
			Tolerance: ToleranceConfig{Abs: 1e-9, Rel: 1e-9},
			InitState: InitStateConfig{Y: 0, VX: 5, VY: 20},
			Detectors: DetectorConfig{Impact: true, Apex: true, TimeTol: 1e-9},
		},
	},
	"kepler": {
		"circular": {
			Model: "kepler", Scheme: "dopri54", Duration: 6.3,
			Tolerance: ToleranceConfig{Abs: 1e-10, Rel: 1e-10},
			InitState: InitStateConfig{X: 1, VY: 1},
		},
	},
	"lorenz": {
		"classic": {
			Model: "lorenz", Scheme: "dopri54", Duration: 40.0,
			Tolerance: ToleranceConfig{Abs: 1e-8, Rel: 1e-8},
			InitState: InitStateConfig{X: 1, Y: 1, Z: 1},
		},
	},
}

func GetPreset(model, name string) *Config {
	group, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := group[name]
	if !ok {
		return nil
	}
	out := *cfg
	if out.Steps.Min == 0 {
		out.Steps.Min = DefaultMinStep
	}
	if out.Steps.Max == 0 {
		out.Steps.Max = DefaultMaxStep
	}
	if out.Steps.MaxEvals == 0 {
		out.Steps.MaxEvals = DefaultMaxEvals
	}
	if out.Sample == 0 {
		out.Sample = DefaultSample
	}
	return &out
}

func ListPresets(model string) []string {
	group, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
