package metrics

import (
	"context"
	"strings"
	"testing"
	"time"

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

func perfRow(code string, ret, vol float64) models.PerformanceRow {
	return models.PerformanceRow{FCode: code, AnnualReturn: ret, AnnualVolatility: vol, WinRate: 0.5}
}

func healthyIndicators(code string) models.IndicatorRow {
	return models.IndicatorRow{
		FCode: code, RSI14: 50, Stochastic14: 50,
		DaysSinceLastTrade: 1, InvestorCount: 200,
	}
}

func seededStore() *viewstore.Memory {
	store := viewstore.NewMemory()
	store.Performance = []models.PerformanceRow{
		perfRow("AKB", 0.45, 0.12), // beta estimate 0.78
		perfRow("YAS", 0.30, 0.08), // 0.46
		perfRow("TGE", 0.60, 0.35), // 2.54
		perfRow("GLD", -0.05, 0.20), // 0.80
	}
	for _, code := range []string{"AKB", "YAS", "TGE", "GLD"} {
		store.Indicators = append(store.Indicators, healthyIndicators(code))
	}
	return store
}

func TestBetaEstimate(t *testing.T) {
	row := perfRow("AKB", 0.45, 0.12)
	assert.InDelta(t, 0.78, betaEstimate(&row), 1e-9)

	// Zero volatility pins the estimate to 1.
	flat := perfRow("FLT", 0.30, 0)
	assert.InDelta(t, 1.0, betaEstimate(&flat), 1e-9)
}

func TestJensenAlpha(t *testing.T) {
	// 0.30 - (0.15 + 1.0*(0.25-0.15)) = 0.05
	assert.InDelta(t, 0.05, jensenAlpha(0.30, 0.25, 1.0), 1e-9)
}

// "Beta katsayısı 1'den düşük fonlar": estimate betas below 1, allowed list
// ascending by beta, never an EXTREME fund.
func TestBetaBelowOneScreen(t *testing.T) {
	a := newTestAnalyzer(seededStore())
	analysis := question.NewAnalyzer(nil).Analyze("Beta katsayısı 1'den düşük fonlar")

	out, err := a.Execute(context.Background(), MethodOverview, analysis, nil)
	require.NoError(t, err)

	// YAS (0.46) < AKB (0.78) < GLD (0.80); TGE (2.54) filtered out.
	assert.Less(t, strings.Index(out, "YAS"), strings.Index(out, "AKB"))
	assert.Less(t, strings.Index(out, "AKB"), strings.Index(out, "GLD"))
	assert.NotContains(t, out, "TGE")
	assert.Contains(t, out, "📊 BETA")
	assert.Contains(t, out, "(tahmini)")
	assert.NotContains(t, out, "🔴") // no EXTREME anywhere in this universe
}

func TestBetaScreenBlocksExtreme(t *testing.T) {
	store := seededStore()
	store.Indicators[1].PriceVsSMA20 = -90 // YAS collapses

	a := newTestAnalyzer(store)
	analysis := question.NewAnalyzer(nil).Analyze("Beta katsayısı 1'den düşük fonlar")

	out, err := a.Execute(context.Background(), MethodOverview, analysis, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "🚫")
	assert.Contains(t, out, "🔴 YAS")
	assert.NotContains(t, out, ". 🔴")
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		in        string
		kind      metricKind
		threshold float64
		below     bool
		has       bool
	}{
		{"beta katsayısı 1'den düşük fonlar", metricBeta, 1, true, true},
		{"alfa değeri en yüksek fonlar", metricAlpha, 0, false, false},
		{"sharpe oranı 2 üzerinde olanlar", metricSharpe, 2, false, true},
		{"takip hatası düşük fonlar", metricTracking, 0, true, false},
		{"bilgi oranı yüksek fonlar", metricInfoR, 0, false, false},
		{"fon metrikleri", metricSharpe, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			q := parseQuery(tt.in)
			assert.Equal(t, tt.kind, q.kind)
			assert.Equal(t, tt.has, q.hasThreshold)
			if tt.has {
				assert.InDelta(t, tt.threshold, q.threshold, 1e-9)
				assert.Equal(t, tt.below, q.below)
			}
		})
	}
}

// makeHistory builds a price series from a start price and daily returns,
// one point per weekday starting at base.
func makeHistory(start float64, returns []float64, base time.Time) []models.PricePoint {
	points := []models.PricePoint{{Date: base, Price: start}}
	price := start
	for i, r := range returns {
		price *= 1 + r
		points = append(points, models.PricePoint{
			Date:  base.AddDate(0, 0, i+1),
			Price: price,
		})
	}
	return points
}

func marketReturns(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		// Alternating pattern with nonzero variance.
		if i%2 == 0 {
			out[i] = 0.01
		} else {
			out[i] = -0.004
		}
	}
	return out
}

func scaled(rs []float64, k float64) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r * k
	}
	return out
}

func TestTrueBetaFromAlignedHistory(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mkt := marketReturns(40)

	store := seededStore()
	store.Performance = append(store.Performance, perfRow("TI2", 0.25, 0.18))
	store.Histories["TI2"] = makeHistory(100, mkt, base)
	store.Histories["AKB"] = makeHistory(10, scaled(mkt, 2), base)

	a := newTestAnalyzer(store)
	bench := a.resolveBenchmark(context.Background(), store.Performance)
	require.NotNil(t, bench)
	require.Equal(t, "TI2", bench.row.FCode)

	beta, ok := a.trueBeta(context.Background(), "AKB", bench)
	require.True(t, ok)
	assert.InDelta(t, 2.0, beta, 1e-6)
}

func TestTrueBetaRejectedOnFewPoints(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mkt := marketReturns(10) // only 10 aligned returns

	store := seededStore()
	store.Performance = append(store.Performance, perfRow("TI2", 0.25, 0.18))
	store.Histories["TI2"] = makeHistory(100, mkt, base)
	store.Histories["AKB"] = makeHistory(10, scaled(mkt, 2), base)

	a := newTestAnalyzer(store)
	bench := a.resolveBenchmark(context.Background(), store.Performance)
	_, ok := a.trueBeta(context.Background(), "AKB", bench)
	assert.False(t, ok)
}

func TestTrueBetaRejectedWhenImplausible(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mkt := marketReturns(40)

	store := seededStore()
	store.Performance = append(store.Performance, perfRow("TI2", 0.25, 0.18))
	store.Histories["TI2"] = makeHistory(100, mkt, base)
	store.Histories["AKB"] = makeHistory(10, scaled(mkt, 6), base)

	a := newTestAnalyzer(store)
	bench := a.resolveBenchmark(context.Background(), store.Performance)
	_, ok := a.trueBeta(context.Background(), "AKB", bench)
	assert.False(t, ok)
}

// The information-ratio screen only admits funds with annual return above
// 20%. The cutoff is intentional; this test pins it.
func TestInformationRatioReturnFloor(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mkt := marketReturns(40)

	store := seededStore()
	store.Performance = append(store.Performance, perfRow("TI2", 0.18, 0.18))
	store.Histories["TI2"] = makeHistory(100, mkt, base)
	noisy := make([]float64, len(mkt))
	for i, r := range mkt {
		if i%2 == 0 {
			noisy[i] = r + 0.002
		} else {
			noisy[i] = r - 0.002
		}
	}
	store.Histories["AKB"] = makeHistory(10, noisy, base)
	store.Histories["YAS"] = makeHistory(10, noisy, base)

	a := newTestAnalyzer(store)
	bench := a.resolveBenchmark(context.Background(), store.Performance)
	require.NotNil(t, bench)

	high := perfRow("AKB", 0.45, 0.12)
	_, _, ok := a.metricValue(context.Background(), metricInfoR, &high, bench)
	assert.True(t, ok)

	mid := perfRow("YAS", 0.19, 0.08)
	_, _, ok = a.metricValue(context.Background(), metricInfoR, &mid, bench)
	assert.False(t, ok, "annual return at or below 20% is excluded")
}

func TestBenchmarkFallbackToLargestEquityFund(t *testing.T) {
	store := seededStore() // no TI2/TKF/GAF rows
	store.Titles = []models.FundTitle{
		{FCode: "AKB", Title: "AK PORTFÖY HİSSE SENEDİ FONU"},
		{FCode: "TGE", Title: "AK PORTFÖY HİSSE TEKNOLOJİ FONU"},
		{FCode: "YAS", Title: "YAPI KREDİ PORTFÖY TAHVİL FONU"},
	}
	for i := range store.Indicators {
		switch store.Indicators[i].FCode {
		case "AKB":
			store.Indicators[i].Capacity = 5_000_000
		case "TGE":
			store.Indicators[i].Capacity = 9_000_000
		}
	}

	a := newTestAnalyzer(store)
	bench := a.resolveBenchmark(context.Background(), store.Performance)
	require.NotNil(t, bench)
	assert.Equal(t, "TGE", bench.row.FCode)
}

func TestBenchmarkExcludedFromScreen(t *testing.T) {
	store := seededStore()
	store.Performance = append(store.Performance, perfRow("TI2", 0.10, 0.15)) // estimate beta 0.7125
	store.Indicators = append(store.Indicators, healthyIndicators("TI2"))

	a := newTestAnalyzer(store)
	analysis := question.NewAnalyzer(nil).Analyze("Beta katsayısı 1'den düşük fonlar")
	out, err := a.Execute(context.Background(), MethodOverview, analysis, nil)
	require.NoError(t, err)

	// The benchmark appears only in the footnote, never as a candidate.
	assert.NotContains(t, out, ". ⚪ TI2")
	assert.Contains(t, out, "Benchmark: TI2")
}
