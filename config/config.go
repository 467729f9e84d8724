// Package config holds the run parameters of the plane wave DPG solver
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Problem    ProblemConfig   `yaml:"problem"`
	Mesh       MeshConfig      `yaml:"mesh"`
	Solver     SolverConfig    `yaml:"solver"`
	Partitions PartitionConfig `yaml:"partitions"`
	Output     OutputConfig    `yaml:"output"`
}

type ProblemConfig struct {
	Wavenumber float64 `yaml:"wavenumber"`
	// Theta is the propagation angle in radians
	Theta  float64 `yaml:"theta"`
	Degree int     `yaml:"degree"`
	// Delta is the test space degree elevation
	Delta int `yaml:"delta"`
}

type MeshConfig struct {
	Lower        [2]float64 `yaml:"lower"`
	Upper        [2]float64 `yaml:"upper"`
	Subdivisions [2]int     `yaml:"subdivisions"`
	// Cycles is the number of global refinement cycles, the first one runs
	// on the unrefined mesh
	Cycles int `yaml:"cycles"`
}

type SolverConfig struct {
	Type          string  `yaml:"type"` // cg or direct
	MaxIterations int     `yaml:"maxIterations"`
	RelTolerance  float64 `yaml:"relTolerance"`
	// AllowUnconverged logs a solve that hit the iteration cap and
	// continues with the last iterate instead of failing
	AllowUnconverged bool `yaml:"allowUnconverged"`
}

type PartitionConfig struct {
	Strategy string `yaml:"strategy"` // block, roundrobin or graph
	// Workers is the number of partitions processed concurrently, 0 for
	// one per CPU
	Workers int `yaml:"workers"`
}

type OutputConfig struct {
	// Dir receives the convergence CSV and plot, nothing is written when empty
	Dir     string `yaml:"dir"`
	Plot    bool   `yaml:"plot"`
	Verbose bool   `yaml:"verbose"`
}

// Default returns the reference plane wave problem on the unit square
func Default() Config {
	return Config{
		Problem: ProblemConfig{
			Wavenumber: 4 * math.Pi,
			Theta:      math.Pi / 4,
			Degree:     1,
			Delta:      1,
		},
		Mesh: MeshConfig{
			Lower:        [2]float64{0, 0},
			Upper:        [2]float64{1, 1},
			Subdivisions: [2]int{2, 2},
			Cycles:       4,
		},
		Solver: SolverConfig{
			Type:          "cg",
			MaxIterations: 1000000,
			RelTolerance:  1.e-10,
		},
		Partitions: PartitionConfig{Strategy: "block"},
		Output:     OutputConfig{Plot: true},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()
	if err = Decode(f, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads YAML from r over the values already in cfg and validates the
// result
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg.Validate()
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func (c *Config) Validate() error {
	p := c.Problem
	if !(p.Wavenumber > 0) || math.IsInf(p.Wavenumber, 0) {
		return invalid("problem.wavenumber must be positive and finite, have %g", p.Wavenumber)
	}
	// Both absorbing boundaries need a non negative direction cosine
	if !(p.Theta >= 0 && p.Theta <= math.Pi/2) {
		return invalid("problem.theta must be in [0, pi/2], have %g", p.Theta)
	}
	if p.Degree < 0 {
		return invalid("problem.degree must be >= 0, have %d", p.Degree)
	}
	if p.Delta < 1 {
		return invalid("problem.delta must be >= 1, have %d", p.Delta)
	}

	m := c.Mesh
	for d := 0; d < 2; d++ {
		if !(m.Upper[d] > m.Lower[d]) || math.IsInf(m.Upper[d]-m.Lower[d], 0) {
			return invalid("mesh domain [%g,%g]x[%g,%g] is empty or unbounded",
				m.Lower[0], m.Upper[0], m.Lower[1], m.Upper[1])
		}
		if m.Subdivisions[d] < 1 {
			return invalid("mesh.subdivisions must be >= 1, have %v", m.Subdivisions)
		}
	}
	if m.Cycles < 1 {
		return invalid("mesh.cycles must be >= 1, have %d", m.Cycles)
	}

	s := &c.Solver
	s.Type = strings.ToLower(s.Type)
	if s.Type != "cg" && s.Type != "direct" {
		return invalid("solver.type must be cg or direct, have %q", s.Type)
	}
	if s.MaxIterations < 1 {
		return invalid("solver.maxIterations must be >= 1, have %d", s.MaxIterations)
	}
	if !(s.RelTolerance > 0 && s.RelTolerance < 1) {
		return invalid("solver.relTolerance must be in (0, 1), have %g", s.RelTolerance)
	}

	pc := &c.Partitions
	pc.Strategy = strings.ToLower(pc.Strategy)
	switch pc.Strategy {
	case "block", "roundrobin", "graph":
	default:
		return invalid("partitions.strategy must be block, roundrobin or graph, have %q", pc.Strategy)
	}
	if pc.Workers < 0 {
		return invalid("partitions.workers must be >= 0, have %d", pc.Workers)
	}
	return nil
}
