package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/i474232898/tomorrow-pipeline/internal/config"
	"github.com/i474232898/tomorrow-pipeline/internal/weather"
)

func TestResolveGranularity(t *testing.T) {
	cfg := &config.AppConfig{DataGranularity: weather.GranularityDaily}

	assert.Equal(t, weather.GranularityDaily, resolveGranularity(false, "hourly", cfg),
		"DATA_GRANULARITY applies when the flag is not passed")
	assert.Equal(t, weather.GranularityMinutely, resolveGranularity(true, "minutely", cfg),
		"an explicit flag wins over configuration")
}

func TestResolveInterval(t *testing.T) {
	cfg := &config.AppConfig{FetchInterval: 30 * time.Minute}

	assert.Equal(t, 30*time.Minute, resolveInterval(false, 15*time.Minute, cfg))
	assert.Equal(t, 5*time.Minute, resolveInterval(true, 5*time.Minute, cfg))
}

func TestRound4(t *testing.T) {
	assert.Equal(t, 25.86, round4(25.860049))
	assert.Equal(t, -97.4201, round4(-97.42006))
	assert.Equal(t, 0.0, round4(0))
}
