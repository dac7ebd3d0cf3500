package lifeplan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fonradar/fonradar/internal/common"
	"github.com/fonradar/fonradar/internal/models"
	"github.com/fonradar/fonradar/internal/question"
	"github.com/fonradar/fonradar/internal/risk"
	"github.com/fonradar/fonradar/internal/viewstore"
)

func newTestAnalyzer(store *viewstore.Memory) *Analyzer {
	return NewAnalyzer(store, risk.NewScorer(), common.NewSilentLogger())
}

func seededStore() *viewstore.Memory {
	store := viewstore.NewMemory()
	store.Titles = []models.FundTitle{
		{FCode: "HSA", Title: "AK PORTFÖY HİSSE SENEDİ FONU"},
		{FCode: "HSB", Title: "İŞ PORTFÖY HİSSE SENEDİ FONU"},
		{FCode: "GLD", Title: "ZİRAAT PORTFÖY ALTIN FONU"},
		{FCode: "BND", Title: "GARANTİ PORTFÖY BORÇLANMA ARAÇLARI FONU"},
		{FCode: "PPF", Title: "YAPI KREDİ PORTFÖY PARA PİYASASI FONU"},
	}
	store.Performance = []models.PerformanceRow{
		{FCode: "HSA", AnnualReturn: 0.55, AnnualVolatility: 0.30},
		{FCode: "HSB", AnnualReturn: 0.40, AnnualVolatility: 0.50}, // above every equity band
		{FCode: "GLD", AnnualReturn: 0.42, AnnualVolatility: 0.22},
		{FCode: "BND", AnnualReturn: 0.25, AnnualVolatility: 0.06},
		{FCode: "PPF", AnnualReturn: 0.18, AnnualVolatility: 0.02},
	}
	for _, code := range []string{"HSA", "HSB", "GLD", "BND", "PPF"} {
		store.Indicators = append(store.Indicators, models.IndicatorRow{
			FCode: code, RSI14: 50, Stochastic14: 50,
			DaysSinceLastTrade: 1, InvestorCount: 400,
		})
	}
	return store
}

func analyze(q string) *models.QuestionAnalysis {
	return question.NewAnalyzer(nil).Analyze(q)
}

func TestHorizonProfile(t *testing.T) {
	assert.Equal(t, "aggressive", horizonProfile(12))
	assert.Equal(t, "balanced", horizonProfile(5))
	assert.Equal(t, "conservative", horizonProfile(4))
	assert.Equal(t, "very_conservative", horizonProfile(3))
	assert.Equal(t, "very_conservative", horizonProfile(1))
}

func TestSelectProfileRiskWording(t *testing.T) {
	assert.Equal(t, "aggressive", selectProfile(5, goalGeneric, "agresif büyüme istiyorum").name)
	assert.Equal(t, "conservative", selectProfile(5, goalGeneric, "güvenli olsun").name)
	assert.Equal(t, "balanced", selectProfile(5, goalGeneric, "birikim yapmak istiyorum").name)
	// Child savings cap out at balanced.
	assert.Equal(t, "balanced", selectProfile(12, goalChild, "çocuğum için").name)
}

func TestDetectGoal(t *testing.T) {
	assert.Equal(t, goalHome, detectGoal("3 yıl sonra ev almak istiyorum"))
	assert.Equal(t, goalChild, detectGoal("çocuğumun eğitimi için birikim"))
	assert.Equal(t, goalRetirement, detectGoal("emeklilik için fon öner"))
	assert.Equal(t, goalGeneric, detectGoal("uzun vadeli birikim"))
}

func TestGoalPlanBuildsBuckets(t *testing.T) {
	a := newTestAnalyzer(seededStore())
	analysis := analyze("10 yıl sonra emeklilik için 100000 liram var fon öner")
	require.Equal(t, 3650, analysis.Parameters.Days)
	require.Equal(t, int64(100000), analysis.Parameters.Amount)

	out, err := a.Execute(context.Background(), MethodGoalPlan, analysis, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "🎯 Emeklilik Planı (10 yıl, agresif profil)")
	assert.Contains(t, out, "Planlanan tutar: 100000 TL")
	assert.Contains(t, out, "▸ Hisse: %60 (60000 TL)")
	assert.Contains(t, out, "HSA")
	assert.Contains(t, out, "GLD")
	assert.Contains(t, out, "BND")
	assert.Contains(t, out, "PPF")
	// HSB's 50% volatility exceeds even the aggressive equity band.
	assert.NotContains(t, out, "HSB")
}

func TestExtremeAlwaysExcluded(t *testing.T) {
	store := seededStore()
	for i := range store.Indicators {
		if store.Indicators[i].FCode == "HSA" {
			store.Indicators[i].PriceVsSMA20 = -90
		}
	}

	a := newTestAnalyzer(store)
	out, err := a.Execute(context.Background(), MethodGoalPlan, analyze("10 yıl sonra emeklilik için fon öner"), nil)
	require.NoError(t, err)

	assert.Contains(t, out, "🚫 Risk nedeniyle değerlendirme dışı: HSA")
	assert.NotContains(t, out, ". 🔴")
}

func TestShortHorizonHomeAcceptsOnlyLowMedium(t *testing.T) {
	store := seededStore()
	// BND turns HIGH via inactivity; on a 2-year home goal it must drop out.
	for i := range store.Indicators {
		if store.Indicators[i].FCode == "BND" {
			store.Indicators[i].DaysSinceLastTrade = 45
		}
	}

	a := newTestAnalyzer(store)
	analysis := analyze("2 yıl sonra ev almak istiyorum")
	require.Equal(t, 730, analysis.Parameters.Days)

	out, err := a.Execute(context.Background(), MethodGoalPlan, analysis, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "Ev Alma Planı")
	assert.Contains(t, out, "çok temkinli")
	assert.NotContains(t, out, "🟠 BND")
	assert.Contains(t, out, "PPF")
	assert.Contains(t, out, "kısa vadeli hedeflerde yalnızca düşük ve orta riskli fonlar")
}

func TestPlanFallbackToPeriodView(t *testing.T) {
	store := seededStore()
	store.FailViews["mv_fund_performance_metrics"] = errors.New("relation missing")
	store.Periods = []models.PeriodRow{
		{FCode: "PPF", Return30D: 0.015, Volatility30: 0.02},
		{FCode: "BND", Return30D: 0.02, Volatility30: 0.06},
	}

	a := newTestAnalyzer(store)
	out, err := a.Execute(context.Background(), MethodGoalPlan, analyze("10 yıl sonra emeklilik için fon öner"), nil)
	require.NoError(t, err)

	assert.Contains(t, out, "PPF")
	assert.Contains(t, out, "yedek sorgu kullanıldı")
}

func TestPlanTitleFallbackToScenarioView(t *testing.T) {
	store := seededStore()
	store.FailViews["mv_latest_fund_data"] = errors.New("down")
	store.Scenarios = []models.ScenarioRow{
		{FCode: "GLD", Title: "ZİRAAT PORTFÖY ALTIN FONU", ProtectionCategory: models.ProtectionGold},
	}

	a := newTestAnalyzer(store)
	out, err := a.Execute(context.Background(), MethodGoalPlan, analyze("10 yıl sonra emeklilik için fon öner"), nil)
	require.NoError(t, err)

	assert.Contains(t, out, "GLD")
	assert.Contains(t, out, "yedek sorgu kullanıldı")
}

func TestPlanBothTitlePathsFail(t *testing.T) {
	store := seededStore()
	store.FailViews["mv_latest_fund_data"] = errors.New("down")
	store.FailViews["mv_scenario_analysis_funds"] = errors.New("down")

	a := newTestAnalyzer(store)
	_, err := a.Execute(context.Background(), MethodGoalPlan, analyze("emeklilik için fon öner"), nil)
	assert.Error(t, err)
}

func TestDefaultHorizonWhenUnstated(t *testing.T) {
	a := newTestAnalyzer(seededStore())
	out, err := a.Execute(context.Background(), MethodGoalPlan, analyze("birikim için fon öner"), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "(5 yıl, dengeli profil)")
}
