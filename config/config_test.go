package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewReturnsExpectedDefaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, 10000, cfg.Interp.MaxCallDepth)
	assert.False(t, cfg.Interp.Profile)
	assert.Equal(t, 1, cfg.Compiler.Optimize)
	assert.False(t, cfg.Compiler.KeepC)
	assert.Equal(t, "cc", cfg.Compiler.CC)
}

func TestConfigFieldsAreIndependentPerInstance(t *testing.T) {
	a := New()
	b := New()
	a.Interp.MaxCallDepth = 1
	a.Compiler.Optimize = 0
	assert.Equal(t, 10000, b.Interp.MaxCallDepth)
	assert.Equal(t, 1, b.Compiler.Optimize)
}
