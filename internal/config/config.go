package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/flightprop/internal/dynamo"
)

const (
	DefaultDuration = 10.0
	DefaultAbsTol   = 1e-9
	DefaultRelTol   = 1e-9
	DefaultMinStep  = 1e-12
	DefaultMaxStep  = 1.0
	DefaultMaxEvals = 1_000_000
	DefaultSample   = 0.1
)

type Config struct {
	Model     string          `yaml:"model"`
	Scheme    string          `yaml:"scheme"`
	Start     float64         `yaml:"start"`
	Duration  float64         `yaml:"duration"`
	Tolerance ToleranceConfig `yaml:"tolerance"`
	Steps     StepConfig      `yaml:"steps"`
	Sample    float64         `yaml:"sample"`
	InitState InitStateConfig `yaml:"init_state"`
	Detectors DetectorConfig  `yaml:"detectors"`
}

type ToleranceConfig struct {
	Abs    float64   `yaml:"abs"`
	Rel    float64   `yaml:"rel"`
	AbsVec []float64 `yaml:"abs_vec,omitempty"`
	RelVec []float64 `yaml:"rel_vec,omitempty"`
}

type StepConfig struct {
	Initial  float64 `yaml:"initial"`
	Min      float64 `yaml:"min"`
	Max      float64 `yaml:"max"`
	MaxEvals int     `yaml:"max_evals"`
}

type InitStateConfig struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	VX     float64 `yaml:"vx"`
	VY     float64 `yaml:"vy"`
	Z      float64 `yaml:"z"`
	Value  float64 `yaml:"value"`
	Radius float64 `yaml:"radius"`
}

type DetectorConfig struct {
	Impact      bool    `yaml:"impact"`
	Restitution float64 `yaml:"restitution"`
	Apex        bool    `yaml:"apex"`
	TimeTol     float64 `yaml:"time_tol"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:    "ballistic",
		Scheme:   "dopri54",
		Duration: DefaultDuration,
		Tolerance: ToleranceConfig{
			Abs: DefaultAbsTol,
			Rel: DefaultRelTol,
		},
		Steps: StepConfig{
			Min:      DefaultMinStep,
			Max:      DefaultMaxStep,
			MaxEvals: DefaultMaxEvals,
		},
		Sample: DefaultSample,
		InitState: InitStateConfig{
			Y:     10,
			VX:    5,
			Value: 1,
		},
		Detectors: DetectorConfig{
			Impact:  true,
			TimeTol: 1e-9,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Engine translates the file-level config into the engine's propagation
// config.
func (c *Config) Engine() dynamo.Config {
	return dynamo.Config{
		InitialStep:    c.Steps.Initial,
		MinStep:        c.Steps.Min,
		MaxStep:        c.Steps.Max,
		AbsTol:         c.Tolerance.Abs,
		RelTol:         c.Tolerance.Rel,
		AbsTolVec:      c.Tolerance.AbsVec,
		RelTolVec:      c.Tolerance.RelVec,
		MaxEvaluations: c.Steps.MaxEvals,
	}
}

// GetInitState builds the initial state vector for the configured model.
func (c *Config) GetInitState() []float64 {
	switch c.Model {
	case "decay":
		return []float64{c.InitState.Value}
	case "harmonic":
		return []float64{c.InitState.X, c.InitState.VX}
	case "lorenz":
		return []float64{c.InitState.X, c.InitState.Y, c.InitState.Z}
	case "kepler":
		return []float64{c.InitState.X, c.InitState.Y, c.InitState.VX, c.InitState.VY}
	default: // ballistic
		return []float64{c.InitState.X, c.InitState.Y, c.InitState.VX, c.InitState.VY}
	}
}
