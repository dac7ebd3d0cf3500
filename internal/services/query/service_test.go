package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fonradar/fonradar/internal/common"
	"github.com/fonradar/fonradar/internal/interfaces"
	"github.com/fonradar/fonradar/internal/models"
	"github.com/fonradar/fonradar/internal/question"
	"github.com/fonradar/fonradar/internal/risk"
	"github.com/fonradar/fonradar/internal/routing"
	"github.com/fonradar/fonradar/internal/services/currency"
	"github.com/fonradar/fonradar/internal/services/lifeplan"
	"github.com/fonradar/fonradar/internal/services/metrics"
	"github.com/fonradar/fonradar/internal/services/performance"
	"github.com/fonradar/fonradar/internal/services/technical"
	"github.com/fonradar/fonradar/internal/viewstore"
)

var canonicalCodes = []string{
	"AKB", "YAS", "TGE", "GLD", "PPF", "BND",
	"HSA", "USA", "USB", "TLA", "BAD",
}

// stubSink records commentary calls.
type stubSink struct {
	available bool
	reply     string
	err       error
	calls     int
}

func (s *stubSink) Available() bool { return s.available }

func (s *stubSink) Query(ctx context.Context, prompt, systemRole string) (string, error) {
	s.calls++
	return s.reply, s.err
}

func seededStore() *viewstore.Memory {
	store := viewstore.NewMemory()

	store.Performance = []models.PerformanceRow{
		{FCode: "AKB", CurrentPrice: 1.20, AnnualReturn: 0.45, AnnualVolatility: 0.12, WinRate: 0.6, TradingDays: 250},
		{FCode: "YAS", CurrentPrice: 2.40, AnnualReturn: 0.30, AnnualVolatility: 0.08, WinRate: 0.55, TradingDays: 250},
		{FCode: "TGE", CurrentPrice: 0.80, AnnualReturn: 0.60, AnnualVolatility: 0.35, WinRate: 0.5, TradingDays: 250},
		{FCode: "GLD", CurrentPrice: 5.10, AnnualReturn: 0.42, AnnualVolatility: 0.22, WinRate: 0.52, TradingDays: 250},
		{FCode: "PPF", CurrentPrice: 1.01, AnnualReturn: 0.18, AnnualVolatility: 0.02, WinRate: 0.7, TradingDays: 250},
		{FCode: "USA", CurrentPrice: 3.30, AnnualReturn: 0.50, AnnualVolatility: 0.10, WinRate: 0.62, TradingDays: 250},
		{FCode: "USB", CurrentPrice: 1.90, AnnualReturn: 0.35, AnnualVolatility: 0.14, WinRate: 0.58, TradingDays: 250},
		{FCode: "BAD", CurrentPrice: 0.10, AnnualReturn: -0.40, AnnualVolatility: 0.09, WinRate: 0.2, TradingDays: 250},
	}

	for _, code := range canonicalCodes {
		row := models.IndicatorRow{
			FCode: code, CurrentPrice: 1.0, RSI14: 50, Stochastic14: 50,
			SMA20: 1.0, SMA50: 0.98, DaysSinceLastTrade: 1, InvestorCount: 400,
		}
		switch code {
		case "BAD":
			row.PriceVsSMA20 = -80 // EXTREME
		case "AKB":
			row.MACDLine = 0.06
		case "TGE":
			row.MACDLine = 0.02
		case "YAS":
			row.MACDLine = -0.03
		}
		store.Indicators = append(store.Indicators, row)
	}

	store.Titles = []models.FundTitle{
		{FCode: "USA", Title: "AK PORTFÖY DOLAR SERBEST DÖVİZ FONU"},
		{FCode: "USB", Title: "İŞ PORTFÖY AMERİKAN DOLARI FONU"},
		{FCode: "GLD", Title: "ZİRAAT PORTFÖY ALTIN FONU"},
		{FCode: "PPF", Title: "YAPI KREDİ PORTFÖY PARA PİYASASI FONU"},
		{FCode: "AKB", Title: "AK PORTFÖY HİSSE SENEDİ FONU"},
	}

	store.Periods = []models.PeriodRow{
		{FCode: "AKB", Return30D: 0.04},
		{FCode: "YAS", Return30D: 0.02},
	}

	return store
}

func newService(store *viewstore.Memory, opts ...Option) *Service {
	logger := common.NewSilentLogger()
	scorer := risk.NewScorer()

	perf := performance.NewAnalyzer(store, scorer, logger)
	registry := map[string]interfaces.Analyzer{
		models.HandlerPerformance:      perf,
		models.HandlerPortfolioCompany: perf,
		models.HandlerRiskAnalysis:     perf,
		models.HandlerAdvancedMetrics:  metrics.NewAnalyzer(store, scorer, logger),
		models.HandlerCurrency:         currency.NewAnalyzer(store, scorer, logger),
		models.HandlerTechnical:        technical.NewAnalyzer(store, scorer, logger),
		models.HandlerLifePlan:         lifeplan.NewAnalyzer(store, scorer, logger),
	}

	return NewService(
		question.NewAnalyzer(canonicalCodes),
		routing.NewOrchestrator(store, scorer, logger),
		registry,
		logger,
		opts...,
	)
}

func TestScenarioBetaBelowOne(t *testing.T) {
	s := newService(seededStore())

	out, err := s.Ask(context.Background(), "Beta katsayısı 1'den düşük fonlar")
	require.NoError(t, err)

	assert.Contains(t, out, "📊 BETA")
	// No price history is seeded, so betas are volatility-based estimates.
	assert.Contains(t, out, "YAS")
	assert.Contains(t, out, "AKB")
	// The EXTREME fund never reaches the allowed list.
	assert.NotContains(t, out, ". 🔴")
}

func TestScenarioComparison(t *testing.T) {
	s := newService(seededStore())

	out, err := s.Ask(context.Background(), "AKB ve YAS karşılaştır")
	require.NoError(t, err)

	assert.Contains(t, out, "⚖️ Fon Karşılaştırması: AKB, YAS")
	assert.Contains(t, out, "30 gün: +4.00%")
	assert.Contains(t, out, "30 gün: +2.00%")
	assert.Contains(t, out, "Fiyat: 1.2000 TL")
	assert.Contains(t, out, "Fiyat: 2.4000 TL")
	assert.Contains(t, out, "🏆 En iyi performans: AKB")
}

func TestScenarioSafestTen(t *testing.T) {
	s := newService(seededStore())

	out, err := s.Ask(context.Background(), "en güvenli 10 fon")
	require.NoError(t, err)

	assert.Contains(t, out, "🛡️ En Güvenli Fonlar")
	// Volatility ascending: PPF (2%) first, then YAS (8%).
	assert.Less(t, strings.Index(out, "PPF"), strings.Index(out, "YAS"))
	assert.Less(t, strings.Index(out, "YAS"), strings.Index(out, "USA"))
	// BAD is EXTREME, so the blocked section is present.
	assert.Contains(t, out, "🚫")
	assert.Contains(t, out, "🔴 BAD")
}

func TestScenarioDollarFunds(t *testing.T) {
	s := newService(seededStore())

	out, err := s.Ask(context.Background(), "Dolar fonlarının bu ayki performansı")
	require.NoError(t, err)

	assert.Contains(t, out, "💵 USD Fonları")
	assert.Contains(t, out, "USA")
	assert.Contains(t, out, "USB")
	assert.NotContains(t, out, "GLD")
}

func TestScenarioUnknownCode(t *testing.T) {
	store := seededStore()
	// Prove no candidate query is issued: every analytical view would fail.
	store.FailViews["mv_fund_performance_metrics"] = errors.New("must not be queried")
	store.FailViews["mv_fund_technical_indicators"] = errors.New("must not be queried")

	s := newService(store)
	out, err := s.Ask(context.Background(), "XYZ fonunu analiz et")
	require.NoError(t, err)

	assert.Contains(t, out, `"XYZ"`)
	// At least ten sample codes are listed.
	listed := 0
	for _, code := range canonicalCodes {
		if strings.Contains(out, code) {
			listed++
		}
	}
	assert.GreaterOrEqual(t, listed, 10)
}

func TestScenarioMACDPositive(t *testing.T) {
	s := newService(seededStore())

	out, err := s.Ask(context.Background(), "MACD sinyali pozitif olan fonlar")
	require.NoError(t, err)

	assert.Contains(t, out, "📡 MACD Sinyali Pozitif Fonlar")
	// |macd| descending: AKB (0.06) before TGE (0.02); YAS is negative.
	assert.Less(t, strings.Index(out, "AKB"), strings.Index(out, "TGE"))
	assert.NotContains(t, out, "YAS")
}

func TestCommentaryAppended(t *testing.T) {
	sink := &stubSink{available: true, reply: "Kısa vadede temkinli olun."}
	s := newService(seededStore(), WithCommentary(sink))

	out, err := s.Ask(context.Background(), "en güvenli 10 fon")
	require.NoError(t, err)

	assert.Equal(t, 1, sink.calls)
	assert.Contains(t, out, "💬 Yorum: Kısa vadede temkinli olun.")
}

func TestCommentarySuppressedOnExtremeRisk(t *testing.T) {
	sink := &stubSink{available: true, reply: "yorum"}
	s := newService(seededStore(), WithCommentary(sink))

	out, err := s.Ask(context.Background(), "BAD fonunu analiz et")
	require.NoError(t, err)

	assert.Equal(t, 0, sink.calls, "extreme risk suppresses commentary")
	assert.Contains(t, out, "🔴 BAD")
	assert.NotContains(t, out, "💬")
}

func TestCommentaryFailureIsSilent(t *testing.T) {
	sink := &stubSink{available: true, err: errors.New("quota exceeded")}
	s := newService(seededStore(), WithCommentary(sink))

	out, err := s.Ask(context.Background(), "en güvenli 10 fon")
	require.NoError(t, err)

	assert.Equal(t, 1, sink.calls)
	assert.NotContains(t, out, "💬")
	assert.Contains(t, out, "En Güvenli Fonlar")
}

func TestUnavailableSinkNeverQueried(t *testing.T) {
	sink := &stubSink{available: false}
	s := newService(seededStore(), WithCommentary(sink))

	_, err := s.Ask(context.Background(), "en güvenli 10 fon")
	require.NoError(t, err)
	assert.Equal(t, 0, sink.calls)
}

func TestUnregisteredHandlerSkipped(t *testing.T) {
	store := seededStore()
	logger := common.NewSilentLogger()
	scorer := risk.NewScorer()

	// Only the performance analyzer is registered; the advanced-metrics
	// route for a general analyze question must be skipped in its favor.
	registry := map[string]interfaces.Analyzer{
		models.HandlerPerformance: performance.NewAnalyzer(store, scorer, logger),
	}
	s := NewService(
		question.NewAnalyzer(canonicalCodes),
		routing.NewOrchestrator(store, scorer, logger),
		registry,
		logger,
	)

	out, err := s.Ask(context.Background(), "Beta katsayısı 1'den düşük fonlar")
	require.NoError(t, err)
	assert.Contains(t, out, "En Çok Kazandıran")
}
