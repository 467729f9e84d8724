package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4*math.Pi, cfg.Problem.Wavenumber)
	assert.Equal(t, math.Pi/4, cfg.Problem.Theta)
	assert.Equal(t, [2]int{2, 2}, cfg.Mesh.Subdivisions)
	assert.Equal(t, "cg", cfg.Solver.Type)
	assert.False(t, cfg.Solver.AllowUnconverged)
}

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg := Default()
	doc := `
problem:
  degree: 2
mesh:
  cycles: 3
  subdivisions: [3, 1]
solver:
  type: Direct
partitions:
  strategy: graph
  workers: 4
`
	require.NoError(t, Decode(strings.NewReader(doc), &cfg))
	assert.Equal(t, 2, cfg.Problem.Degree)
	assert.Equal(t, 1, cfg.Problem.Delta)
	assert.Equal(t, 4*math.Pi, cfg.Problem.Wavenumber)
	assert.Equal(t, 3, cfg.Mesh.Cycles)
	assert.Equal(t, [2]int{3, 1}, cfg.Mesh.Subdivisions)
	assert.Equal(t, "direct", cfg.Solver.Type)
	assert.Equal(t, "graph", cfg.Partitions.Strategy)
	assert.Equal(t, 4, cfg.Partitions.Workers)

	empty := Default()
	require.NoError(t, Decode(strings.NewReader(""), &empty))
	assert.Equal(t, Default(), empty)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	err := Decode(strings.NewReader("problem:\n  wavelength: 3\n"), &cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("problem:\n  theta: 0\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0., cfg.Problem.Theta)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"zero wavenumber", func(c *Config) { c.Problem.Wavenumber = 0 }},
		{"infinite wavenumber", func(c *Config) { c.Problem.Wavenumber = math.Inf(1) }},
		{"NaN wavenumber", func(c *Config) { c.Problem.Wavenumber = math.NaN() }},
		{"negative theta", func(c *Config) { c.Problem.Theta = -0.1 }},
		{"theta above pi/2", func(c *Config) { c.Problem.Theta = 2 }},
		{"negative degree", func(c *Config) { c.Problem.Degree = -1 }},
		{"zero delta", func(c *Config) { c.Problem.Delta = 0 }},
		{"empty domain", func(c *Config) { c.Mesh.Upper[1] = c.Mesh.Lower[1] }},
		{"zero subdivisions", func(c *Config) { c.Mesh.Subdivisions[0] = 0 }},
		{"zero cycles", func(c *Config) { c.Mesh.Cycles = 0 }},
		{"unknown solver", func(c *Config) { c.Solver.Type = "gmres" }},
		{"zero iterations", func(c *Config) { c.Solver.MaxIterations = 0 }},
		{"zero tolerance", func(c *Config) { c.Solver.RelTolerance = 0 }},
		{"unit tolerance", func(c *Config) { c.Solver.RelTolerance = 1 }},
		{"unknown strategy", func(c *Config) { c.Partitions.Strategy = "metis" }},
		{"negative workers", func(c *Config) { c.Partitions.Workers = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}
