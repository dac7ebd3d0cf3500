package performance

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fonradar/fonradar/internal/common"
	"github.com/fonradar/fonradar/internal/models"
	"github.com/fonradar/fonradar/internal/risk"
	"github.com/fonradar/fonradar/internal/services/report"
)

// singleFund produces the deep dive for one fund. An EXTREME assessment
// short-circuits into a risk warning; the normal analysis is skipped.
func (a *Analyzer) singleFund(ctx context.Context, analysis *models.QuestionAnalysis, rc *models.RouteContext) (string, error) {
	if len(analysis.FundCodes) == 0 {
		return a.parseFailure(ctx, analysis)
	}
	fcode := analysis.FundCodes[0]

	assessment := a.contextAssessment(ctx, fcode, rc)
	if assessment.Level == models.RiskExtreme {
		return a.riskWarning(fcode, assessment), nil
	}

	perfRows, err := a.store.PerformanceMetricsFor(ctx, []string{fcode})
	if err != nil {
		return "", &models.ViewStoreError{View: "mv_fund_performance_metrics", Err: err}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s Fon Analizi\n", fcode)
	b.WriteString("══════════════════════════════════════════════════\n\n")

	if details, derr := a.store.FundDetails(ctx, fcode); derr == nil {
		fmt.Fprintf(&b, "Fon: %s\n", details.Name)
		fmt.Fprintf(&b, "Tür: %s / %s\n\n", details.Type, details.Category)
	}

	if len(perfRows) == 0 {
		fmt.Fprintf(&b, "%s için performans verisi bulunamadı.\n", fcode)
	} else {
		row := &perfRows[0]
		fmt.Fprintf(&b, "Güncel fiyat: %s\n", common.FormatPrice(row.CurrentPrice))
		fmt.Fprintf(&b, "Yıllık getiri: %s\n", common.FormatSignedPct(row.AnnualReturn))
		fmt.Fprintf(&b, "Yıllık volatilite: %s\n", common.FormatPct(row.AnnualVolatility))
		fmt.Fprintf(&b, "Sharpe: %s\n", common.FormatRatio(a.sharpe(row)))
		fmt.Fprintf(&b, "Kazanma oranı: %s (%d işlem günü)\n", common.FormatPct(row.WinRate), row.TradingDays)
		fmt.Fprintf(&b, "En kötü gün: %s | En iyi gün: %s\n",
			common.FormatSignedPct(row.WorstDailyReturn), common.FormatSignedPct(row.BestDailyReturn))
	}

	fmt.Fprintf(&b, "\nRisk: %s %s (puan %d)\n", assessment.Level.Glyph(), assessment.Level, assessment.Score)
	for _, f := range assessment.Factors {
		fmt.Fprintf(&b, "  - %s\n", f.Description)
	}
	if assessment.RequiresResearch {
		b.WriteString("\nBu fon ek araştırma gerektiriyor.\n")
	}

	return b.String(), nil
}

// comparison renders a side-by-side table for two or more funds with 30-day
// returns, prices, and a best-performer line.
func (a *Analyzer) comparison(ctx context.Context, analysis *models.QuestionAnalysis) (string, error) {
	codes := analysis.FundCodes
	if len(codes) < 2 {
		return a.parseFailure(ctx, analysis)
	}

	perfRows, err := a.store.PerformanceMetricsFor(ctx, codes)
	if err != nil {
		return "", &models.ViewStoreError{View: "mv_fund_performance_metrics", Err: err}
	}
	perfByCode := make(map[string]*models.PerformanceRow, len(perfRows))
	for i := range perfRows {
		perfByCode[perfRows[i].FCode] = &perfRows[i]
	}

	periods, err := a.store.PeriodPerformance(ctx, candidateLimit)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Period view unavailable for comparison")
	}
	periodByCode := make(map[string]*models.PeriodRow, len(periods))
	for i := range periods {
		periodByCode[periods[i].FCode] = &periods[i]
	}

	indicators, err := a.indicatorsFor(ctx, codes)
	if err != nil {
		indicators = map[string]*models.IndicatorRow{}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚖️ Fon Karşılaştırması: %s\n", joinCodes(codes))
	b.WriteString("══════════════════════════════════════════════════\n\n")

	bestCode := ""
	bestReturn := 0.0
	for _, code := range codes {
		assessment := a.assess(code, indicators)
		perf := perfByCode[code]
		period := periodByCode[code]

		fmt.Fprintf(&b, "%s %s", assessment.Level.Glyph(), code)
		if perf == nil {
			b.WriteString(": performans verisi yok\n")
			continue
		}

		// Without a period row the monthly figure is derived from the
		// annual return and labeled as such.
		monthly := perf.AnnualReturn / 12
		estimated := period == nil
		if period != nil {
			monthly = period.Return30D
		}
		fmt.Fprintf(&b, " | 30 gün: %s", common.FormatSignedPct(monthly))
		if estimated {
			b.WriteString(" (tahmini)")
		}
		fmt.Fprintf(&b, " | Fiyat: %s | Volatilite: %s\n",
			common.FormatPrice(perf.CurrentPrice),
			common.FormatPct(perf.AnnualVolatility))

		if assessment.Level != models.RiskExtreme && (bestCode == "" || monthly > bestReturn) {
			bestCode = code
			bestReturn = monthly
		}
	}

	if bestCode != "" {
		fmt.Fprintf(&b, "\n🏆 En iyi performans: %s (%s / 30 gün)\n", bestCode, common.FormatSignedPct(bestReturn))
	}

	return b.String(), nil
}

// Risk tolerance templates for the year recommendation blend.
var toleranceWeights = map[string]struct {
	retW, volW, winW float64
}{
	"conservative": {0.3, 0.5, 0.2},
	"moderate":     {0.5, 0.3, 0.2},
	"aggressive":   {0.7, 0.1, 0.2},
}

// yearRecommendation ranks candidates by a blended score weighted by the
// detected risk tolerance (default moderate).
func (a *Analyzer) yearRecommendation(ctx context.Context, analysis *models.QuestionAnalysis) (string, error) {
	tolerance := detectTolerance(analysis.Normalized)
	w := toleranceWeights[tolerance]

	return a.ranked(ctx, analysis, rankSpec{
		title: fmt.Sprintf("🗓️ Yıllık Fon Önerisi (%s profil)", toleranceLabel(tolerance)),
		label: "öneri puanı",
		metric: func(r *models.PerformanceRow) float64 {
			return w.retW*r.AnnualReturn - w.volW*r.AnnualVolatility + w.winW*r.WinRate
		},
	})
}

func detectTolerance(normalized string) string {
	switch {
	case strings.Contains(normalized, "agresif") || strings.Contains(normalized, "yüksek getiri"):
		return "aggressive"
	case strings.Contains(normalized, "temkinli") || strings.Contains(normalized, "muhafazakar") ||
		strings.Contains(normalized, "güvenli"):
		return "conservative"
	default:
		return "moderate"
	}
}

func toleranceLabel(tolerance string) string {
	switch tolerance {
	case "aggressive":
		return "agresif"
	case "conservative":
		return "temkinli"
	default:
		return "dengeli"
	}
}

// companyFunds lists funds whose registered title names the management
// company mentioned in the question.
func (a *Analyzer) companyFunds(ctx context.Context, analysis *models.QuestionAnalysis) (string, error) {
	company := extractCompany(analysis.Normalized)
	if company == "" {
		return "Portföy şirketi adı anlaşılamadı. Örnek: \"Ak Portföy fonlarını listele\".", nil
	}

	titles, err := a.store.LatestFundData(ctx)
	if err != nil {
		return "", &models.ViewStoreError{View: "mv_latest_fund_data", Err: err}
	}

	needle := strings.ToUpper(company)
	var codes []string
	titleByCode := make(map[string]string)
	for _, t := range titles {
		if strings.Contains(strings.ToUpper(t.Title), needle) {
			codes = append(codes, t.FCode)
			titleByCode[t.FCode] = t.Title
		}
		if len(codes) >= candidateLimit {
			break
		}
	}

	if len(codes) == 0 {
		meta := models.ReportMeta{Title: fmt.Sprintf("🏢 %s Fonları", strings.ToUpper(company))}
		return report.Build(meta, &models.PartitionedResults{}), nil
	}

	perfRows, err := a.store.PerformanceMetricsFor(ctx, codes)
	if err != nil {
		return "", &models.ViewStoreError{View: "mv_fund_performance_metrics", Err: err}
	}
	indicators, err := a.indicatorsFor(ctx, codes)
	if err != nil {
		indicators = map[string]*models.IndicatorRow{}
	}

	var items []models.ResultItem
	for i := range perfRows {
		row := &perfRows[i]
		items = append(items, models.ResultItem{
			Code:          row.FCode,
			Name:          titleByCode[row.FCode],
			Risk:          a.assess(row.FCode, indicators),
			PrimaryMetric: row.AnnualReturn,
			MetricLabel:   "yıllık getiri",
			Line:          a.summaryLine(row),
		})
	}

	parts := risk.Partition(items)
	sortAllowed(parts, false)

	meta := models.ReportMeta{
		Title: fmt.Sprintf("🏢 %s Fonları", strings.ToUpper(company)),
		TopK:  topK(analysis),
	}
	return report.Build(meta, parts), nil
}

// extractCompany returns the words preceding the portfolio-company marker.
func extractCompany(normalized string) string {
	fields := strings.Fields(normalized)
	for i, f := range fields {
		if strings.HasPrefix(f, "portföy") && i > 0 {
			start := i - 2
			if start < 0 {
				start = 0
			}
			return strings.Join(fields[start:i], " ")
		}
	}
	return ""
}

// riskReport renders the detailed factor breakdown for the funds the
// question names, using the assessments already attached by routing.
func (a *Analyzer) riskReport(ctx context.Context, analysis *models.QuestionAnalysis, rc *models.RouteContext) (string, error) {
	codes := analysis.FundCodes
	if len(codes) == 0 {
		return a.parseFailure(ctx, analysis)
	}

	var b strings.Builder
	b.WriteString("🚨 Risk Raporu\n")
	b.WriteString("══════════════════════════════════════════════════\n\n")

	for _, code := range codes {
		assessment := a.contextAssessment(ctx, code, rc)
		fmt.Fprintf(&b, "%s %s: %s (puan %d)\n", assessment.Level.Glyph(), code, assessment.Level, assessment.Score)
		for _, f := range assessment.Factors {
			fmt.Fprintf(&b, "  [%s] %s\n", f.Severity, f.Description)
			if f.Action != "" {
				fmt.Fprintf(&b, "      Önerilen aksiyon: %s\n", f.Action)
			}
			if f.Opportunity != "" {
				fmt.Fprintf(&b, "      Fırsat: %s\n", f.Opportunity)
			}
		}
		if !assessment.Tradeable {
			fmt.Fprintf(&b, "  Bu fon işlem için uygun görünmüyor (puan >= 50).\n")
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

// contextAssessment reuses the route context's assessment when present and
// rescoring only when it is missing.
func (a *Analyzer) contextAssessment(ctx context.Context, fcode string, rc *models.RouteContext) *models.RiskAssessment {
	if rc != nil {
		if assessment, ok := rc.RiskAssessments[fcode]; ok && assessment != nil {
			return assessment
		}
	}
	rows, err := a.store.TechnicalIndicatorsFor(ctx, []string{fcode})
	if err != nil || len(rows) == 0 {
		return risk.Unknown(fcode)
	}
	return a.scorer.Score(fcode, models.RiskInputFromIndicators(&rows[0]))
}

// riskWarning is the single-fund EXTREME short circuit.
func (a *Analyzer) riskWarning(fcode string, assessment *models.RiskAssessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔴 %s için yüksek risk uyarısı\n", fcode)
	b.WriteString("══════════════════════════════════════════════════\n\n")
	fmt.Fprintf(&b, "Risk seviyesi: %s (puan %d). Normal analiz bu fon için atlandı.\n\n", assessment.Level, assessment.Score)
	for _, f := range assessment.Factors {
		fmt.Fprintf(&b, "  [%s] %s\n", f.Severity, f.Description)
	}
	return b.String()
}

// parseFailure reports unresolved fund codes with a sample of the canonical
// universe so the user can correct the question.
func (a *Analyzer) parseFailure(ctx context.Context, analysis *models.QuestionAnalysis) (string, error) {
	available, err := a.store.AllFundCodes(ctx)
	if err != nil {
		available = nil
	}
	sort.Strings(available)
	if len(available) > 10 {
		available = available[:10]
	}

	token := ""
	if len(analysis.Candidates) > 0 {
		token = analysis.Candidates[0]
	}
	return "", &models.ParseFailureError{Token: token, Available: available}
}
