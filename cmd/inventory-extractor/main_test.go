package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-extractor/internal/config"
	"inventory-extractor/internal/metrics"
)

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCmd(config.DefaultConfig())

	for _, name := range []string{
		"base-url", "username", "password", "session-file", "output-dir",
		"headless", "step-timeout", "refresh-timeout", "load-more-attempts",
		"on-stall", "selectors", "metrics-addr", "verbose",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Nil(t, cmd.Flags().Lookup("timeout"))
}

func TestStepTimeoutDefaultFollowsConfig(t *testing.T) {
	defaults := config.DefaultConfig()
	cmd := newRootCmd(defaults)

	flag := cmd.Flags().Lookup("step-timeout")
	require.NotNil(t, flag)
	assert.Equal(t, "10", flag.DefValue)
}

func TestMetricsServerDisabledWithoutAddr(t *testing.T) {
	assert.Nil(t, startMetricsServer("", metrics.New()))
	stopMetricsServer(nil)
}
