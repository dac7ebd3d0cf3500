// Package metrics implements the advanced-metrics analyzer: Beta, Alpha,
// tracking error, information ratio, and Sharpe screens over the performance
// view, with an optional benchmark resolved from the fund universe.
package metrics

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/fonradar/fonradar/internal/common"
	"github.com/fonradar/fonradar/internal/interfaces"
	"github.com/fonradar/fonradar/internal/models"
	"github.com/fonradar/fonradar/internal/risk"
	"github.com/fonradar/fonradar/internal/services/report"
)

// MethodOverview is the single routed entry point; the metric is chosen from
// the question text.
const MethodOverview = "metric_overview"

const (
	riskFreeRate   = 0.15
	candidateLimit = 50

	// Estimate Beta denominator: a 20% volatility fund maps to Beta 1 at
	// the risk-free return.
	referenceVolatility = 0.20

	// Information ratio is only reported for funds clearing this annual
	// return. The cutoff excludes mid-return active funds; kept as-is and
	// pinned by test.
	informationRatioReturnFloor = 0.20
)

// DefaultBenchmarkCandidates are tried in order before falling back to the
// largest equity-heavy fund.
var DefaultBenchmarkCandidates = []string{"TI2", "TKF", "GAF"}

type metricKind string

const (
	metricBeta     metricKind = "beta"
	metricAlpha    metricKind = "alpha"
	metricTracking metricKind = "tracking_error"
	metricInfoR    metricKind = "information_ratio"
	metricSharpe   metricKind = "sharpe"
)

// Analyzer computes benchmark-relative metrics.
type Analyzer struct {
	store      interfaces.ViewStore
	scorer     interfaces.RiskScorer
	logger     *common.Logger
	candidates []string
}

// NewAnalyzer creates an advanced-metrics analyzer.
func NewAnalyzer(store interfaces.ViewStore, scorer interfaces.RiskScorer, logger *common.Logger) *Analyzer {
	return &Analyzer{
		store:      store,
		scorer:     scorer,
		logger:     logger,
		candidates: DefaultBenchmarkCandidates,
	}
}

// Name implements interfaces.Analyzer.
func (a *Analyzer) Name() string { return models.HandlerAdvancedMetrics }

// Methods implements interfaces.Analyzer.
func (a *Analyzer) Methods() []string { return []string{MethodOverview} }

// Execute implements interfaces.Analyzer. All methods resolve to the
// overview; the metric and threshold come from the question text.
func (a *Analyzer) Execute(ctx context.Context, method string, analysis *models.QuestionAnalysis, rc *models.RouteContext) (string, error) {
	query := parseQuery(analysis.Normalized)

	rows, err := a.store.PerformanceMetrics(ctx, candidateLimit)
	if err != nil || len(rows) == 0 {
		// One fallback attempt against the period view.
		periods, ferr := a.store.PeriodPerformance(ctx, candidateLimit)
		if ferr != nil {
			if err != nil {
				return "", fmt.Errorf("metrics candidate query and fallback both failed: %w", ferr)
			}
			return "", ferr
		}
		rows = periodsToPerformance(periods)
		query.usedFallback = true
	}

	bench := a.resolveBenchmark(ctx, rows)

	indicators, ierr := a.indicatorsFor(ctx, rows)
	if ierr != nil {
		a.logger.Warn().Err(ierr).Msg("Indicator lookup failed, scoring with defaults")
		indicators = map[string]*models.IndicatorRow{}
	}

	var items []models.ResultItem
	for i := range rows {
		row := &rows[i]
		if bench != nil && row.FCode == bench.row.FCode {
			continue
		}
		value, estimate, ok := a.metricValue(ctx, query.kind, row, bench)
		if !ok || !query.accepts(value) {
			continue
		}
		items = append(items, models.ResultItem{
			Code:          row.FCode,
			Risk:          a.assess(row.FCode, indicators),
			PrimaryMetric: value,
			MetricLabel:   query.kind.label(),
			Line:          a.metricLine(query.kind, value, row, estimate),
			Estimate:      estimate,
		})
	}

	parts := risk.Partition(items)
	sortAllowed(parts, query.ascending())

	meta := models.ReportMeta{
		Title:        query.title(),
		Method:       MethodOverview,
		TopK:         topK(analysis),
		UsedFallback: query.usedFallback,
	}
	if bench != nil {
		meta.Footnote = fmt.Sprintf("Benchmark: %s (yıllık getiri %s).", bench.row.FCode, common.FormatSignedPct(bench.row.AnnualReturn))
	}
	return report.Build(meta, parts), nil
}

// metricQuery is the parsed shape of a metrics question.
type metricQuery struct {
	kind         metricKind
	threshold    float64
	hasThreshold bool
	below        bool
	usedFallback bool
}

var numberRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)`)

// parseQuery picks the metric, threshold, and comparison direction from the
// normalized question. Defaults: Sharpe screen, no threshold.
func parseQuery(normalized string) *metricQuery {
	q := &metricQuery{kind: metricSharpe}

	switch {
	case strings.Contains(normalized, "beta"):
		q.kind = metricBeta
	case strings.Contains(normalized, "alfa") || strings.Contains(normalized, "alpha"):
		q.kind = metricAlpha
	case strings.Contains(normalized, "takip hatası") || strings.Contains(normalized, "tracking"):
		q.kind = metricTracking
	case strings.Contains(normalized, "bilgi oranı") || strings.Contains(normalized, "information"):
		q.kind = metricInfoR
	}

	if m := numberRe.FindString(normalized); m != "" {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64); err == nil {
			q.threshold = v
			q.hasThreshold = true
		}
	}

	switch {
	case strings.Contains(normalized, "yüksek") || strings.Contains(normalized, "üzeri") ||
		strings.Contains(normalized, "fazla"):
		q.below = false
	case strings.Contains(normalized, "düşük") || strings.Contains(normalized, "altında") ||
		strings.Contains(normalized, "daha az"):
		q.below = true
	default:
		q.below = false
		q.hasThreshold = false
	}

	return q
}

func (q *metricQuery) accepts(value float64) bool {
	if !q.hasThreshold {
		return true
	}
	if q.below {
		return value < q.threshold
	}
	return value > q.threshold
}

// ascending reports the allowed-list sort direction: below-threshold screens
// read best from the bottom up.
func (q *metricQuery) ascending() bool {
	return q.hasThreshold && q.below
}

func (q *metricQuery) title() string {
	name := map[metricKind]string{
		metricBeta:     "📊 BETA Taraması",
		metricAlpha:    "📈 ALPHA Taraması",
		metricTracking: "🎯 Takip Hatası Taraması",
		metricInfoR:    "📐 Bilgi Oranı Taraması",
		metricSharpe:   "🏆 Sharpe Taraması",
	}[q.kind]
	if q.hasThreshold {
		cmp := ">"
		if q.below {
			cmp = "<"
		}
		return fmt.Sprintf("%s (%s %s %s)", name, q.kind.label(), cmp, common.FormatRatio(q.threshold))
	}
	return name
}

func (k metricKind) label() string {
	switch k {
	case metricBeta:
		return "Beta"
	case metricAlpha:
		return "Alpha"
	case metricTracking:
		return "takip hatası"
	case metricInfoR:
		return "bilgi oranı"
	default:
		return "Sharpe"
	}
}

// metricValue computes one metric for one fund. The bool pair is
// (estimate, ok): estimate marks values produced without benchmark history.
func (a *Analyzer) metricValue(ctx context.Context, kind metricKind, row *models.PerformanceRow, bench *benchmark) (value float64, estimate, ok bool) {
	switch kind {
	case metricBeta:
		if bench != nil {
			if b, valid := a.trueBeta(ctx, row.FCode, bench); valid {
				return b, false, true
			}
		}
		return betaEstimate(row), true, true

	case metricAlpha:
		if bench == nil {
			return 0, false, false
		}
		beta, est := betaEstimate(row), true
		if b, valid := a.trueBeta(ctx, row.FCode, bench); valid {
			beta, est = b, false
		}
		return jensenAlpha(row.AnnualReturn, bench.row.AnnualReturn, beta), est, true

	case metricTracking:
		if bench == nil {
			return 0, false, false
		}
		te, valid := a.trackingError(ctx, row.FCode, bench)
		return te, false, valid

	case metricInfoR:
		if bench == nil || row.AnnualReturn <= informationRatioReturnFloor {
			return 0, false, false
		}
		te, valid := a.trackingError(ctx, row.FCode, bench)
		if !valid || te == 0 {
			return 0, false, false
		}
		return (row.AnnualReturn - bench.row.AnnualReturn) / te, false, true

	default:
		if row.SharpeRatio != nil {
			return *row.SharpeRatio, false, true
		}
		if row.AnnualVolatility == 0 {
			return 0, false, false
		}
		return (row.AnnualReturn - riskFreeRate) / row.AnnualVolatility, true, true
	}
}

func (a *Analyzer) metricLine(kind metricKind, value float64, row *models.PerformanceRow, estimate bool) string {
	prefix := map[metricKind]string{
		metricBeta:     "📊 BETA",
		metricAlpha:    "📈 ALPHA",
		metricTracking: "🎯 TE",
		metricInfoR:    "📐 IR",
		metricSharpe:   "🏆 SHARPE",
	}[kind]
	suffix := ""
	if estimate {
		suffix = " (tahmini)"
	}
	return fmt.Sprintf("%s %s%s | Getiri: %s | Volatilite: %s",
		prefix, common.FormatRatio(value), suffix,
		common.FormatSignedPct(row.AnnualReturn), common.FormatPct(row.AnnualVolatility))
}

func (a *Analyzer) indicatorsFor(ctx context.Context, rows []models.PerformanceRow) (map[string]*models.IndicatorRow, error) {
	codes := make([]string, len(rows))
	for i, r := range rows {
		codes[i] = r.FCode
	}
	if len(codes) == 0 {
		return map[string]*models.IndicatorRow{}, nil
	}
	found, err := a.store.TechnicalIndicatorsFor(ctx, codes)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.IndicatorRow, len(found))
	for i := range found {
		out[found[i].FCode] = &found[i]
	}
	return out, nil
}

func (a *Analyzer) assess(fcode string, indicators map[string]*models.IndicatorRow) *models.RiskAssessment {
	row, ok := indicators[fcode]
	if !ok {
		return risk.Unknown(fcode)
	}
	return a.scorer.Score(fcode, models.RiskInputFromIndicators(row))
}

func periodsToPerformance(periods []models.PeriodRow) []models.PerformanceRow {
	out := make([]models.PerformanceRow, 0, len(periods))
	for _, p := range periods {
		out = append(out, models.PerformanceRow{
			FCode:            p.FCode,
			AnnualReturn:     p.Return30D * 12,
			AnnualVolatility: p.Volatility30,
		})
	}
	return out
}

func sortAllowed(parts *models.PartitionedResults, ascending bool) {
	sort.SliceStable(parts.Allowed, func(i, j int) bool {
		a, b := parts.Allowed[i], parts.Allowed[j]
		if a.PrimaryMetric != b.PrimaryMetric {
			if ascending {
				return a.PrimaryMetric < b.PrimaryMetric
			}
			return a.PrimaryMetric > b.PrimaryMetric
		}
		return a.Code < b.Code
	})
}

func topK(analysis *models.QuestionAnalysis) int {
	if analysis != nil && analysis.Parameters.RequestedCount > 0 {
		return analysis.Parameters.RequestedCount
	}
	return report.DefaultTopK
}

var _ interfaces.Analyzer = (*Analyzer)(nil)
