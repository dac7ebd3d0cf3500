// Package technical implements the technical analyzer: MACD, RSI, Bollinger,
// and moving-average screens over the indicators view, a combined signal
// score, and a per-fund pattern method with entry, stop, and target prices.
package technical

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/fonradar/fonradar/internal/common"
	"github.com/fonradar/fonradar/internal/interfaces"
	"github.com/fonradar/fonradar/internal/models"
	"github.com/fonradar/fonradar/internal/risk"
	"github.com/fonradar/fonradar/internal/services/report"
)

// Method names accepted by Execute.
const (
	MethodSignals = "technical_signals"
	MethodPattern = "pattern_analysis"
)

const (
	candidateLimit = 50

	// Funds idle this long are excluded from signal screens; a stale MACD
	// is noise.
	maxIdleDays = 14

	strongSignalFloor = 3
)

// Analyzer screens funds by technical indicators.
type Analyzer struct {
	store  interfaces.ViewStore
	scorer interfaces.RiskScorer
	logger *common.Logger
}

// NewAnalyzer creates a technical analyzer.
func NewAnalyzer(store interfaces.ViewStore, scorer interfaces.RiskScorer, logger *common.Logger) *Analyzer {
	return &Analyzer{store: store, scorer: scorer, logger: logger}
}

// Name implements interfaces.Analyzer.
func (a *Analyzer) Name() string { return models.HandlerTechnical }

// Methods implements interfaces.Analyzer.
func (a *Analyzer) Methods() []string { return []string{MethodSignals, MethodPattern} }

// Execute implements interfaces.Analyzer. The signals method picks its
// indicator from the question text; combined scoring is the default.
func (a *Analyzer) Execute(ctx context.Context, method string, analysis *models.QuestionAnalysis, rc *models.RouteContext) (string, error) {
	if method == MethodPattern {
		return a.pattern(ctx, analysis, rc)
	}

	switch {
	case strings.Contains(analysis.Normalized, "macd"):
		return a.macdScreen(ctx, analysis)
	// rsı and bollınger are what uppercase RSI and BOLLINGER fold to.
	case strings.Contains(analysis.Normalized, "rsi"), strings.Contains(analysis.Normalized, "rsı"):
		return a.rsiScreen(ctx, analysis)
	case strings.Contains(analysis.Normalized, "bollinger"), strings.Contains(analysis.Normalized, "bollınger"):
		return a.bollingerScreen(ctx, analysis)
	case strings.Contains(analysis.Normalized, "ortalama") || strings.Contains(analysis.Normalized, "kesişim"):
		return a.smaScreen(ctx, analysis)
	default:
		return a.combinedScreen(ctx, analysis)
	}
}

// macdScreen lists active funds with a positive (or negative, when asked)
// MACD line, ordered by signal magnitude.
func (a *Analyzer) macdScreen(ctx context.Context, analysis *models.QuestionAnalysis) (string, error) {
	negative := strings.Contains(analysis.Normalized, "negatif")

	rows, usedFallback, err := a.indicatorRows(ctx)
	if err != nil {
		return "", err
	}

	var items []models.ResultItem
	for i := range rows {
		row := &rows[i]
		if row.DaysSinceLastTrade >= maxIdleDays {
			continue
		}
		if negative && row.MACDLine >= 0 {
			continue
		}
		if !negative && row.MACDLine <= 0 {
			continue
		}
		items = append(items, models.ResultItem{
			Code:          row.FCode,
			Risk:          a.assess(row),
			PrimaryMetric: math.Abs(row.MACDLine),
			MetricLabel:   "|MACD|",
			Line: fmt.Sprintf("MACD: %+.4f | RSI: %.1f | Fiyat: %s",
				row.MACDLine, row.RSI14, common.FormatPrice(row.CurrentPrice)),
		})
	}

	direction := "Pozitif"
	if negative {
		direction = "Negatif"
	}
	return a.render(fmt.Sprintf("📡 MACD Sinyali %s Fonlar", direction), analysis, items, usedFallback), nil
}

// rsiScreen lists oversold (RSI < 30) or overbought (RSI > 70) funds.
func (a *Analyzer) rsiScreen(ctx context.Context, analysis *models.QuestionAnalysis) (string, error) {
	overbought := strings.Contains(analysis.Normalized, "aşırı alım") ||
		strings.Contains(analysis.Normalized, "yüksek")

	rows, usedFallback, err := a.indicatorRows(ctx)
	if err != nil {
		return "", err
	}

	var items []models.ResultItem
	for i := range rows {
		row := &rows[i]
		if row.DaysSinceLastTrade >= maxIdleDays {
			continue
		}
		if overbought && row.RSI14 <= 70 {
			continue
		}
		if !overbought && row.RSI14 >= 30 {
			continue
		}
		metric := row.RSI14
		items = append(items, models.ResultItem{
			Code:          row.FCode,
			Risk:          a.assess(row),
			PrimaryMetric: metric,
			MetricLabel:   "RSI",
			Line: fmt.Sprintf("RSI: %.1f | MACD: %+.4f | Fiyat: %s",
				row.RSI14, row.MACDLine, common.FormatPrice(row.CurrentPrice)),
		})
	}

	title := "📉 Aşırı Satım Bölgesindeki Fonlar (RSI < 30)"
	if overbought {
		title = "📈 Aşırı Alım Bölgesindeki Fonlar (RSI > 70)"
	}
	return a.render(title, analysis, items, usedFallback), nil
}

// bollingerScreen lists funds pressed against a band: bb_position < 0.3
// (lower) or > 0.7 (upper).
func (a *Analyzer) bollingerScreen(ctx context.Context, analysis *models.QuestionAnalysis) (string, error) {
	upper := strings.Contains(analysis.Normalized, "üst")

	rows, usedFallback, err := a.indicatorRows(ctx)
	if err != nil {
		return "", err
	}

	var items []models.ResultItem
	for i := range rows {
		row := &rows[i]
		if row.DaysSinceLastTrade >= maxIdleDays {
			continue
		}
		if upper && row.BBPosition <= 0.7 {
			continue
		}
		if !upper && row.BBPosition >= 0.3 {
			continue
		}
		items = append(items, models.ResultItem{
			Code:          row.FCode,
			Risk:          a.assess(row),
			PrimaryMetric: row.BBPosition,
			MetricLabel:   "BB pozisyonu",
			Line: fmt.Sprintf("BB: %.2f | RSI: %.1f | Fiyat: %s",
				row.BBPosition, row.RSI14, common.FormatPrice(row.CurrentPrice)),
		})
	}

	title := "🔻 Alt Banda Yakın Fonlar (BB < 0.30)"
	if upper {
		title = "🔺 Üst Banda Yakın Fonlar (BB > 0.70)"
	}
	return a.render(title, analysis, items, usedFallback), nil
}

// smaScreen lists funds whose short average crossed the long one.
func (a *Analyzer) smaScreen(ctx context.Context, analysis *models.QuestionAnalysis) (string, error) {
	rows, usedFallback, err := a.indicatorRows(ctx)
	if err != nil {
		return "", err
	}

	var items []models.ResultItem
	for i := range rows {
		row := &rows[i]
		if row.DaysSinceLastTrade >= maxIdleDays || row.SMA50 == 0 {
			continue
		}
		spread := (row.SMA20 - row.SMA50) / row.SMA50
		if spread <= 0 {
			continue
		}
		items = append(items, models.ResultItem{
			Code:          row.FCode,
			Risk:          a.assess(row),
			PrimaryMetric: spread,
			MetricLabel:   "SMA20/SMA50 farkı",
			Line: fmt.Sprintf("SMA20: %.4f | SMA50: %.4f | Fiyat: %s",
				row.SMA20, row.SMA50, common.FormatPrice(row.CurrentPrice)),
		})
	}

	return a.render("📈 Yükselen Kesişimdeki Fonlar (SMA20 > SMA50)", analysis, items, usedFallback), nil
}

// combinedScreen surfaces strong signals: |combined score| >= 3.
func (a *Analyzer) combinedScreen(ctx context.Context, analysis *models.QuestionAnalysis) (string, error) {
	rows, usedFallback, err := a.indicatorRows(ctx)
	if err != nil {
		return "", err
	}

	var items []models.ResultItem
	for i := range rows {
		row := &rows[i]
		if row.DaysSinceLastTrade >= maxIdleDays {
			continue
		}
		score := combinedScore(row)
		if math.Abs(float64(score)) < strongSignalFloor {
			continue
		}
		items = append(items, models.ResultItem{
			Code:          row.FCode,
			Risk:          a.assess(row),
			PrimaryMetric: float64(score),
			MetricLabel:   "teknik puan",
			Line: fmt.Sprintf("%s | Puan: %+d | RSI: %.1f | MACD: %+.4f",
				signalWord(score), score, row.RSI14, row.MACDLine),
		})
	}

	return a.render("⚡ Güçlü Teknik Sinyaller", analysis, items, usedFallback), nil
}

// render partitions, sorts by |metric| descending, and assembles.
func (a *Analyzer) render(title string, analysis *models.QuestionAnalysis, items []models.ResultItem, usedFallback bool) string {
	parts := risk.Partition(items)

	sort.SliceStable(parts.Allowed, func(i, j int) bool {
		x, y := parts.Allowed[i], parts.Allowed[j]
		ax, ay := math.Abs(x.PrimaryMetric), math.Abs(y.PrimaryMetric)
		if ax != ay {
			return ax > ay
		}
		return x.Code < y.Code
	})

	meta := models.ReportMeta{Title: title, TopK: topK(analysis), UsedFallback: usedFallback}
	return report.Build(meta, parts)
}

// pattern renders the single-fund recommendation with entry, stop, and
// target levels derived from the Bollinger band and the combined score.
func (a *Analyzer) pattern(ctx context.Context, analysis *models.QuestionAnalysis, rc *models.RouteContext) (string, error) {
	if len(analysis.FundCodes) == 0 {
		codes, _ := a.store.AllFundCodes(ctx)
		if len(codes) > 10 {
			codes = codes[:10]
		}
		return "", &models.ParseFailureError{Available: codes}
	}
	fcode := analysis.FundCodes[0]

	rows, err := a.store.TechnicalIndicatorsFor(ctx, []string{fcode})
	if err != nil {
		return "", &models.ViewStoreError{View: "mv_fund_technical_indicators", Err: err}
	}
	if len(rows) == 0 {
		return fmt.Sprintf("%s için teknik gösterge verisi bulunamadı.", fcode), nil
	}
	row := &rows[0]

	assessment := a.assess(row)
	if assessment.Level == models.RiskExtreme {
		var b strings.Builder
		fmt.Fprintf(&b, "🔴 %s yüksek riskli: teknik desen analizi atlandı (risk puanı %d).\n", fcode, assessment.Score)
		for _, f := range assessment.Factors {
			fmt.Fprintf(&b, "  [%s] %s\n", f.Severity, f.Description)
		}
		return b.String(), nil
	}

	score := combinedScore(row)
	entry := row.CurrentPrice
	stop := row.BBLower
	if stop <= 0 || stop >= entry {
		stop = entry * 0.95
	}
	target := row.BBUpper
	if target <= entry {
		target = entry * 1.10
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 %s Teknik Desen Analizi\n", fcode)
	b.WriteString("══════════════════════════════════════════════════\n\n")
	fmt.Fprintf(&b, "Sinyal: %s (puan %+d)\n", signalWord(score), score)
	fmt.Fprintf(&b, "RSI: %.1f | MACD: %+.4f | BB: %.2f | Stokastik: %.1f\n\n",
		row.RSI14, row.MACDLine, row.BBPosition, row.Stochastic14)
	fmt.Fprintf(&b, "Giriş: %s\n", common.FormatPrice(entry))
	fmt.Fprintf(&b, "Zarar kes: %s\n", common.FormatPrice(stop))
	fmt.Fprintf(&b, "Hedef: %s\n", common.FormatPrice(target))
	fmt.Fprintf(&b, "\nRisk: %s %s (puan %d)\n", assessment.Level.Glyph(), assessment.Level, assessment.Score)

	return b.String(), nil
}

// indicatorRows loads the bounded indicator candidate set. On an empty
// result or a view error it makes exactly one fallback attempt through the
// keyed per-code path before giving up.
func (a *Analyzer) indicatorRows(ctx context.Context) ([]models.IndicatorRow, bool, error) {
	rows, err := a.store.TechnicalIndicators(ctx, candidateLimit)
	if err == nil && len(rows) > 0 {
		return rows, false, nil
	}
	if err != nil {
		a.logger.Warn().Err(err).Msg("Indicator view failed, trying keyed fallback")
	}

	fallback, ferr := a.keyedIndicators(ctx)
	if ferr != nil {
		if err != nil {
			return nil, false, fmt.Errorf("indicator view and fallback both failed: %w", ferr)
		}
		return nil, false, ferr
	}
	return fallback, true, nil
}

// keyedIndicators reloads indicators through the per-code statement, bounded
// by the canonical code universe.
func (a *Analyzer) keyedIndicators(ctx context.Context) ([]models.IndicatorRow, error) {
	codes, err := a.store.AllFundCodes(ctx)
	if err != nil {
		return nil, err
	}
	if len(codes) > candidateLimit {
		codes = codes[:candidateLimit]
	}
	if len(codes) == 0 {
		return nil, nil
	}
	return a.store.TechnicalIndicatorsFor(ctx, codes)
}

func (a *Analyzer) assess(row *models.IndicatorRow) *models.RiskAssessment {
	return a.scorer.Score(row.FCode, models.RiskInputFromIndicators(row))
}

func topK(analysis *models.QuestionAnalysis) int {
	if analysis != nil && analysis.Parameters.RequestedCount > 0 {
		return analysis.Parameters.RequestedCount
	}
	return report.DefaultTopK
}

var _ interfaces.Analyzer = (*Analyzer)(nil)
