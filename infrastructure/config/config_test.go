package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainconfig "blocklens/domain/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, string(domainconfig.UpperBound), cfg.DuplicatePolicy)
	assert.Equal(t, 10, cfg.ProgressInterval)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("DUPLICATE_POLICY", "lower_bound")
	t.Setenv("EXPERIMENT", "jshelter_firefox")
	t.Setenv("TRAFFIC_DIR", "/data/traffic")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "lower_bound", cfg.DuplicatePolicy)
	assert.Equal(t, "jshelter_firefox", cfg.Experiment)
	assert.Equal(t, "/data/traffic", cfg.TrafficDir)

	dcfg := cfg.DomainConfig()
	assert.Equal(t, domainconfig.LowerBound, dcfg.DuplicatePolicy)
}

func TestLoadConfig_RejectsUnknownPolicy(t *testing.T) {
	t.Setenv("DUPLICATE_POLICY", "middle_bound")

	_, err := LoadConfig()
	assert.Error(t, err)
}
