package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fonradar/fonradar/internal/common"
	"github.com/fonradar/fonradar/internal/models"
	"github.com/fonradar/fonradar/internal/risk"
	"github.com/fonradar/fonradar/internal/viewstore"
)

// Every handler name the routing tables can emit must resolve to an analyzer.
func TestRegistryCoversAllHandlers(t *testing.T) {
	registry := buildRegistry(viewstore.NewMemory(), risk.NewScorer(), common.NewSilentLogger())

	handlers := []string{
		models.HandlerPerformance,
		models.HandlerAdvancedMetrics,
		models.HandlerCurrency,
		models.HandlerTechnical,
		models.HandlerLifePlan,
		models.HandlerPortfolioCompany,
		models.HandlerRiskAnalysis,
	}
	for _, h := range handlers {
		require.Contains(t, registry, h, "handler %s has no analyzer", h)
	}

	// The company and risk handlers share the performance analyzer.
	assert.Equal(t, registry[models.HandlerPerformance], registry[models.HandlerPortfolioCompany])
	assert.Equal(t, registry[models.HandlerPerformance], registry[models.HandlerRiskAnalysis])
}

func TestRefreshSchedulerDisabled(t *testing.T) {
	a := &App{
		Config: common.NewDefaultConfig(),
		Logger: common.NewSilentLogger(),
		Store:  viewstore.NewMemory(),
	}
	require.False(t, a.Config.Refresh.Enabled)
	require.NoError(t, a.StartRefreshScheduler())
	assert.Nil(t, a.refreshStop)
}
