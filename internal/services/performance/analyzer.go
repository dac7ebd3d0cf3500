// Package performance implements the performance analyzer: return, volatility,
// and Sharpe based rankings, single-fund deep dives, comparisons, and the
// management-company and risk-report methods routed to the same handler.
package performance

import (
	"context"
	"fmt"
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
	MethodTopGainers   = "top_gainers"
	MethodTopLosers    = "top_losers"
	MethodSafest       = "safest"
	MethodRiskiest     = "riskiest"
	MethodSharpe       = "sharpe_leaders"
	MethodLowVol       = "low_volatility"
	MethodSingleFund   = "single_fund_analysis"
	MethodComparison   = "comparison"
	MethodYearPlan     = "year_recommendation"
	MethodCompanyFunds = "company_funds"
	MethodRiskReport   = "risk_report"
)

const (
	riskFreeRate    = 0.15
	defaultLowVol   = 0.10
	candidateLimit  = 50
)

// Analyzer ranks funds by performance metrics from the performance view.
type Analyzer struct {
	store  interfaces.ViewStore
	scorer interfaces.RiskScorer
	logger *common.Logger
}

// NewAnalyzer creates a performance analyzer.
func NewAnalyzer(store interfaces.ViewStore, scorer interfaces.RiskScorer, logger *common.Logger) *Analyzer {
	return &Analyzer{store: store, scorer: scorer, logger: logger}
}

// Name implements interfaces.Analyzer.
func (a *Analyzer) Name() string { return models.HandlerPerformance }

// Methods implements interfaces.Analyzer.
func (a *Analyzer) Methods() []string {
	return []string{
		MethodTopGainers, MethodTopLosers, MethodSafest, MethodRiskiest,
		MethodSharpe, MethodLowVol, MethodSingleFund, MethodComparison,
		MethodYearPlan, MethodCompanyFunds, MethodRiskReport,
	}
}

// Execute dispatches a method. Unknown methods fall back to top_gainers.
func (a *Analyzer) Execute(ctx context.Context, method string, analysis *models.QuestionAnalysis, rc *models.RouteContext) (string, error) {
	switch method {
	case MethodTopGainers, "":
		return a.ranked(ctx, analysis, rankSpec{
			title:  "📈 En Çok Kazandıran Fonlar",
			label:  "yıllık getiri",
			metric: func(r *models.PerformanceRow) float64 { return r.AnnualReturn },
		})
	case MethodTopLosers:
		return a.ranked(ctx, analysis, rankSpec{
			title:     "📉 En Çok Kaybettiren Fonlar",
			label:     "yıllık getiri",
			metric:    func(r *models.PerformanceRow) float64 { return r.AnnualReturn },
			ascending: true,
		})
	case MethodSafest:
		return a.ranked(ctx, analysis, rankSpec{
			title:     "🛡️ En Güvenli Fonlar",
			label:     "volatilite",
			metric:    func(r *models.PerformanceRow) float64 { return r.AnnualVolatility },
			ascending: true,
		})
	case MethodRiskiest:
		return a.ranked(ctx, analysis, rankSpec{
			title:  "⚡ En Riskli Fonlar",
			label:  "volatilite",
			metric: func(r *models.PerformanceRow) float64 { return r.AnnualVolatility },
		})
	case MethodSharpe:
		return a.ranked(ctx, analysis, rankSpec{
			title:  "🏆 Sharpe Liderleri",
			label:  "Sharpe",
			metric: a.sharpe,
			filter: func(r *models.PerformanceRow) bool {
				return r.SharpeRatio != nil || r.AnnualVolatility > 0
			},
		})
	case MethodLowVol:
		threshold := defaultLowVol
		if analysis.Parameters.Percentage > 0 {
			threshold = float64(analysis.Parameters.Percentage) / 100
		}
		return a.ranked(ctx, analysis, rankSpec{
			title:     fmt.Sprintf("🛡️ Düşük Volatiliteli Fonlar (< %s)", common.FormatPct(threshold)),
			label:     "volatilite",
			metric:    func(r *models.PerformanceRow) float64 { return r.AnnualVolatility },
			ascending: true,
			filter: func(r *models.PerformanceRow) bool {
				return r.AnnualVolatility < threshold
			},
		})
	case MethodSingleFund:
		return a.singleFund(ctx, analysis, rc)
	case MethodComparison:
		return a.comparison(ctx, analysis)
	case MethodYearPlan:
		return a.yearRecommendation(ctx, analysis)
	case MethodCompanyFunds:
		return a.companyFunds(ctx, analysis)
	case MethodRiskReport:
		return a.riskReport(ctx, analysis, rc)
	default:
		return a.Execute(ctx, MethodTopGainers, analysis, rc)
	}
}

// rankSpec describes one ranking method: the sort metric, its direction, an
// optional candidate filter, and presentation strings.
type rankSpec struct {
	title     string
	label     string
	metric    func(*models.PerformanceRow) float64
	ascending bool
	filter    func(*models.PerformanceRow) bool
}

// ranked runs the shared ranking template: load candidates, score, partition,
// sort allowed by the spec metric, assemble.
func (a *Analyzer) ranked(ctx context.Context, analysis *models.QuestionAnalysis, spec rankSpec) (string, error) {
	rows, usedFallback, err := a.candidates(ctx)
	if err != nil {
		return "", err
	}

	indicators, err := a.indicatorsFor(ctx, rowCodes(rows))
	if err != nil {
		a.logger.Warn().Err(err).Msg("Indicator lookup failed, scoring with defaults")
		indicators = map[string]*models.IndicatorRow{}
	}

	var items []models.ResultItem
	for i := range rows {
		row := &rows[i]
		if spec.filter != nil && !spec.filter(row) {
			continue
		}
		items = append(items, models.ResultItem{
			Code:          row.FCode,
			Risk:          a.assess(row.FCode, indicators),
			PrimaryMetric: spec.metric(row),
			MetricLabel:   spec.label,
			Line:          a.summaryLine(row),
		})
	}

	parts := risk.Partition(items)
	sortAllowed(parts, spec.ascending)

	meta := models.ReportMeta{
		Title:        spec.title,
		Method:       spec.label,
		TopK:         topK(analysis),
		UsedFallback: usedFallback,
	}
	return report.Build(meta, parts), nil
}

// candidates loads the bounded performance candidate set. On an empty result
// or a view error it makes exactly one fallback attempt against the period
// view before giving up.
func (a *Analyzer) candidates(ctx context.Context) ([]models.PerformanceRow, bool, error) {
	rows, err := a.store.PerformanceMetrics(ctx, candidateLimit)
	if err == nil && len(rows) > 0 {
		return rows, false, nil
	}
	if err != nil {
		a.logger.Warn().Err(err).Msg("Performance view failed, trying period fallback")
	}

	periods, ferr := a.store.PeriodPerformance(ctx, candidateLimit)
	if ferr != nil {
		if err != nil {
			return nil, false, fmt.Errorf("performance view and fallback both failed: %w", ferr)
		}
		return nil, false, ferr
	}

	out := make([]models.PerformanceRow, 0, len(periods))
	for _, p := range periods {
		out = append(out, models.PerformanceRow{
			FCode:            p.FCode,
			AnnualReturn:     p.Return30D * 12,
			AnnualVolatility: p.Volatility30,
		})
	}
	return out, true, nil
}

// indicatorsFor maps codes to their indicator rows.
func (a *Analyzer) indicatorsFor(ctx context.Context, codes []string) (map[string]*models.IndicatorRow, error) {
	if len(codes) == 0 {
		return map[string]*models.IndicatorRow{}, nil
	}
	rows, err := a.store.TechnicalIndicatorsFor(ctx, codes)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.IndicatorRow, len(rows))
	for i := range rows {
		out[rows[i].FCode] = &rows[i]
	}
	return out, nil
}

// assess scores a fund from its indicator row, or returns UNKNOWN.
func (a *Analyzer) assess(fcode string, indicators map[string]*models.IndicatorRow) *models.RiskAssessment {
	row, ok := indicators[fcode]
	if !ok {
		return risk.Unknown(fcode)
	}
	return a.scorer.Score(fcode, models.RiskInputFromIndicators(row))
}

// sharpe returns the view Sharpe, or the proxy (return - 15%) / volatility.
func (a *Analyzer) sharpe(r *models.PerformanceRow) float64 {
	if r.SharpeRatio != nil {
		return *r.SharpeRatio
	}
	if r.AnnualVolatility == 0 {
		return 0
	}
	return (r.AnnualReturn - riskFreeRate) / r.AnnualVolatility
}

func (a *Analyzer) summaryLine(r *models.PerformanceRow) string {
	return fmt.Sprintf("Getiri: %s | Volatilite: %s | Sharpe: %s | Kazanma oranı: %s",
		common.FormatSignedPct(r.AnnualReturn),
		common.FormatPct(r.AnnualVolatility),
		common.FormatRatio(a.sharpe(r)),
		common.FormatPct(r.WinRate))
}

// sortAllowed orders the allowed list by primary metric with the fund code
// as a total-order tie break.
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

func rowCodes(rows []models.PerformanceRow) []string {
	codes := make([]string, len(rows))
	for i, r := range rows {
		codes[i] = r.FCode
	}
	return codes
}

func joinCodes(codes []string) string {
	return strings.Join(codes, ", ")
}

var _ interfaces.Analyzer = (*Analyzer)(nil)
