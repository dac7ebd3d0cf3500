package technical

import (
	"context"
	"errors"
	"strings"
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

func indicatorRow(code string) models.IndicatorRow {
	return models.IndicatorRow{
		FCode:              code,
		CurrentPrice:       1.50,
		SMA20:              1.45,
		SMA50:              1.40,
		BBUpper:            1.60,
		BBLower:            1.35,
		BBPosition:         0.5,
		RSI14:              50,
		Stochastic14:       50,
		DaysSinceLastTrade: 1,
		InvestorCount:      300,
	}
}

// Scenario 6: positive-MACD screen keeps active funds only and orders by
// |macd| descending.
func TestMACDPositiveScreen(t *testing.T) {
	store := viewstore.NewMemory()

	strong := indicatorRow("AAA")
	strong.MACDLine = 0.08
	weak := indicatorRow("BBB")
	weak.MACDLine = 0.02
	negative := indicatorRow("CCC")
	negative.MACDLine = -0.05
	stale := indicatorRow("DDD")
	stale.MACDLine = 0.50
	stale.DaysSinceLastTrade = 20
	store.Indicators = []models.IndicatorRow{weak, strong, negative, stale}

	a := newTestAnalyzer(store)
	analysis := question.NewAnalyzer(nil).Analyze("MACD sinyali pozitif olan fonlar")

	out, err := a.Execute(context.Background(), MethodSignals, analysis, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "📡 MACD Sinyali Pozitif Fonlar")
	assert.Less(t, strings.Index(out, "AAA"), strings.Index(out, "BBB"))
	assert.NotContains(t, out, "CCC") // negative macd
	assert.NotContains(t, out, "DDD") // idle >= 14 days
}

func TestRSIOversoldScreen(t *testing.T) {
	store := viewstore.NewMemory()

	oversold := indicatorRow("AAA")
	oversold.RSI14 = 25
	neutral := indicatorRow("BBB")
	store.Indicators = []models.IndicatorRow{oversold, neutral}

	a := newTestAnalyzer(store)
	analysis := question.NewAnalyzer(nil).Analyze("rsi aşırı satım bölgesindeki fonlar")

	out, err := a.Execute(context.Background(), MethodSignals, analysis, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "RSI < 30")
	assert.Contains(t, out, "AAA")
	assert.NotContains(t, out, "BBB")
}

func TestBollingerLowerBandScreen(t *testing.T) {
	store := viewstore.NewMemory()

	low := indicatorRow("AAA")
	low.BBPosition = 0.15
	high := indicatorRow("BBB")
	high.BBPosition = 0.85
	store.Indicators = []models.IndicatorRow{low, high}

	a := newTestAnalyzer(store)
	analysis := question.NewAnalyzer(nil).Analyze("bollinger alt bandına yakın fonlar")

	out, err := a.Execute(context.Background(), MethodSignals, analysis, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "AAA")
	assert.NotContains(t, out, "BBB")
}

func TestCombinedScore(t *testing.T) {
	row := indicatorRow("AAA")
	row.RSI14 = 25       // +2
	row.MACDLine = 0.02  // +1
	row.BBPosition = 0.1 // +2
	// SMA20 1.45 > SMA50 1.40, price 1.50 > SMA20: +2
	assert.Equal(t, 7, combinedScore(&row))

	flat := indicatorRow("BBB")
	flat.MACDLine = 0
	// Neutral RSI and BB; only the SMA trend contributes.
	assert.Equal(t, 2, combinedScore(&flat))
}

func TestStrongSignalsOnly(t *testing.T) {
	store := viewstore.NewMemory()

	strong := indicatorRow("AAA")
	strong.RSI14 = 25
	strong.MACDLine = 0.02 // score 2+1+0+2 = 5

	mild := indicatorRow("BBB")
	mild.SMA20 = 1.40
	mild.SMA50 = 1.45
	mild.MACDLine = 0.02 // score 0+1+0-1 = 0
	store.Indicators = []models.IndicatorRow{strong, mild}

	a := newTestAnalyzer(store)
	analysis := question.NewAnalyzer(nil).Analyze("teknik sinyaller neler")

	out, err := a.Execute(context.Background(), MethodSignals, analysis, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "AAA")
	assert.Contains(t, out, "GÜÇLÜ AL")
	assert.NotContains(t, out, "BBB")
}

func TestPatternAnalysis(t *testing.T) {
	store := viewstore.NewMemory()
	row := indicatorRow("AKB")
	row.MACDLine = 0.02
	store.Indicators = []models.IndicatorRow{row}

	a := newTestAnalyzer(store)
	analysis := question.NewAnalyzer([]string{"AKB"}).Analyze("AKB teknik analiz")

	out, err := a.Execute(context.Background(), MethodPattern, analysis, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "🔍 AKB Teknik Desen Analizi")
	assert.Contains(t, out, "Giriş: 1.5000 TL")
	assert.Contains(t, out, "Zarar kes: 1.3500 TL") // BB lower
	assert.Contains(t, out, "Hedef: 1.6000 TL")     // BB upper
	assert.Contains(t, out, "Risk: 🟢 LOW")
}

func TestPatternStopFallsBackWhenBandInvalid(t *testing.T) {
	store := viewstore.NewMemory()
	row := indicatorRow("AKB")
	row.BBLower = 0
	row.BBUpper = 1.0 // below entry
	store.Indicators = []models.IndicatorRow{row}

	a := newTestAnalyzer(store)
	analysis := question.NewAnalyzer([]string{"AKB"}).Analyze("AKB teknik analiz")

	out, err := a.Execute(context.Background(), MethodPattern, analysis, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "Zarar kes: 1.4250 TL") // entry * 0.95
	assert.Contains(t, out, "Hedef: 1.6500 TL")     // entry * 1.10
}

func TestPatternExtremeFundSkipped(t *testing.T) {
	store := viewstore.NewMemory()
	row := indicatorRow("AKB")
	row.PriceVsSMA20 = -85
	store.Indicators = []models.IndicatorRow{row}

	a := newTestAnalyzer(store)
	analysis := question.NewAnalyzer([]string{"AKB"}).Analyze("AKB teknik analiz")

	out, err := a.Execute(context.Background(), MethodPattern, analysis, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "🔴 AKB yüksek riskli")
	assert.NotContains(t, out, "Giriş:")
}

// brokenBulkStore fails the bulk indicator scan while the keyed per-code
// path keeps working.
type brokenBulkStore struct {
	*viewstore.Memory
}

func (s *brokenBulkStore) TechnicalIndicators(ctx context.Context, limit int) ([]models.IndicatorRow, error) {
	return nil, errors.New("scan timeout")
}

func TestSignalsFallbackToKeyedPath(t *testing.T) {
	mem := viewstore.NewMemory()
	row := indicatorRow("AKB")
	row.MACDLine = 0.05
	mem.Indicators = []models.IndicatorRow{row}

	a := NewAnalyzer(&brokenBulkStore{Memory: mem}, risk.NewScorer(), common.NewSilentLogger())
	analysis := question.NewAnalyzer(nil).Analyze("MACD sinyali pozitif olan fonlar")

	out, err := a.Execute(context.Background(), MethodSignals, analysis, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "AKB")
	assert.Contains(t, out, "yedek sorgu kullanıldı")
}

// countingKeyedStore records keyed indicator lookups so the test can show
// the fallback was attempted exactly once.
type countingKeyedStore struct {
	*viewstore.Memory
	keyedCalls int
}

func (s *countingKeyedStore) TechnicalIndicatorsFor(ctx context.Context, codes []string) ([]models.IndicatorRow, error) {
	s.keyedCalls++
	return s.Memory.TechnicalIndicatorsFor(ctx, codes)
}

func TestSignalsFallbackAlsoFails(t *testing.T) {
	mem := viewstore.NewMemory()
	mem.Indicators = []models.IndicatorRow{indicatorRow("AKB")}
	mem.FailViews["mv_fund_technical_indicators"] = errors.New("io timeout")

	store := &countingKeyedStore{Memory: mem}
	a := NewAnalyzer(store, risk.NewScorer(), common.NewSilentLogger())
	analysis := question.NewAnalyzer(nil).Analyze("MACD sinyali pozitif olan fonlar")

	_, err := a.Execute(context.Background(), MethodSignals, analysis, nil)
	assert.Error(t, err)
	assert.Equal(t, 1, store.keyedCalls)
}

func TestPatternWithoutCodeIsParseFailure(t *testing.T) {
	a := newTestAnalyzer(viewstore.NewMemory())
	analysis := question.NewAnalyzer(nil).Analyze("teknik desen analizi yap")

	_, err := a.Execute(context.Background(), MethodPattern, analysis, nil)
	var parseErr *models.ParseFailureError
	require.ErrorAs(t, err, &parseErr)
}
