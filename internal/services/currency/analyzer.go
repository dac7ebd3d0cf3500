// Package currency implements the currency/inflation analyzer: classifies
// funds into currency categories from their registered titles, scores them
// with category-aware bonuses, and reads the dedicated inflation-protection
// view for scenario questions.
package currency

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
	MethodCurrencyFunds  = "currency_funds"
	MethodPreciousMetals = "precious_metals"
	MethodInflationScan  = "inflation_scenario"
)

const candidateLimit = 50

// Fund categories derived from registered titles.
const (
	CategoryUSD       = "usd"
	CategoryEUR       = "eur"
	CategoryTL        = "tl_based"
	CategoryInflation = "inflation_protected"
	CategoryHedge     = "hedge_funds"
	CategoryPrecious  = "precious_metals"
)

// categoryKeywords classify a fund by the first matching title keyword.
// TEFAS titles are registered in uppercase.
var categoryKeywords = []struct {
	category string
	tokens   []string
}{
	{CategoryPrecious, []string{"ALTIN", "GÜMÜŞ", "KIYMETLİ MADEN"}},
	{CategoryUSD, []string{"DOLAR", "USD", "AMERİKAN", "EUROBOND"}},
	{CategoryEUR, []string{"EURO", "EUR", "AVRUPA"}},
	{CategoryInflation, []string{"ENFLASYON", "TÜFE"}},
	{CategoryHedge, []string{"SERBEST"}},
}

var categoryLabels = map[string]string{
	CategoryUSD:       "💵 USD Fonları",
	CategoryEUR:       "💶 EUR Fonları",
	CategoryTL:        "₺ TL Bazlı Fonlar",
	CategoryInflation: "🛡️ Enflasyon Korumalı Fonlar",
	CategoryHedge:     "🎲 Serbest Fonlar",
	CategoryPrecious:  "🥇 Kıymetli Maden Fonları",
}

// categoryOrder fixes section order in grouped reports.
var categoryOrder = []string{
	CategoryUSD, CategoryEUR, CategoryPrecious,
	CategoryInflation, CategoryHedge, CategoryTL,
}

// Analyzer answers currency and inflation questions.
type Analyzer struct {
	store  interfaces.ViewStore
	scorer interfaces.RiskScorer
	logger *common.Logger
}

// NewAnalyzer creates a currency/inflation analyzer.
func NewAnalyzer(store interfaces.ViewStore, scorer interfaces.RiskScorer, logger *common.Logger) *Analyzer {
	return &Analyzer{store: store, scorer: scorer, logger: logger}
}

// Name implements interfaces.Analyzer.
func (a *Analyzer) Name() string { return models.HandlerCurrency }

// Methods implements interfaces.Analyzer.
func (a *Analyzer) Methods() []string {
	return []string{MethodCurrencyFunds, MethodPreciousMetals, MethodInflationScan}
}

// Execute implements interfaces.Analyzer.
func (a *Analyzer) Execute(ctx context.Context, method string, analysis *models.QuestionAnalysis, rc *models.RouteContext) (string, error) {
	switch method {
	case MethodPreciousMetals:
		return a.groupedReport(ctx, analysis, []string{CategoryPrecious}, "🥇 Kıymetli Maden Fonları")
	case MethodInflationScan:
		return a.inflationScenario(ctx, analysis)
	default:
		wanted := wantedCategories(analysis)
		return a.groupedReport(ctx, analysis, wanted, "💱 Döviz Fonları Analizi")
	}
}

// wantedCategories narrows the report to the currency the question names;
// an unqualified currency question covers both USD and EUR.
func wantedCategories(analysis *models.QuestionAnalysis) []string {
	tokens := analysis.Keywords[models.KeywordCurrency]
	hasUSD, hasEUR := false, false
	for _, tok := range tokens {
		switch tok {
		case "dolar", "usd":
			hasUSD = true
		case "euro", "eur":
			hasEUR = true
		}
	}
	switch {
	case hasUSD && !hasEUR:
		return []string{CategoryUSD}
	case hasEUR && !hasUSD:
		return []string{CategoryEUR}
	default:
		return []string{CategoryUSD, CategoryEUR}
	}
}

// classify maps a registered title to its category; tl_based is the default.
func classify(title string) string {
	upper := strings.ToUpper(title)
	for _, ck := range categoryKeywords {
		for _, tok := range ck.tokens {
			if strings.Contains(upper, tok) {
				return ck.category
			}
		}
	}
	return CategoryTL
}

// scoreFund blends return, Sharpe, and win rate into a base score, adds
// category bonuses for volatility bands and threshold returns, and clips the
// result to [0, 100].
func scoreFund(category string, row *models.PerformanceRow) float64 {
	sharpe := 0.0
	if row.SharpeRatio != nil {
		sharpe = *row.SharpeRatio
	} else if row.AnnualVolatility > 0 {
		sharpe = (row.AnnualReturn - 0.15) / row.AnnualVolatility
	}

	score := 30 + row.AnnualReturn*60 + sharpe*8 + row.WinRate*20

	switch category {
	case CategoryUSD, CategoryEUR:
		if row.AnnualVolatility < 0.15 {
			score += 10
		}
		if row.AnnualReturn > 0.30 {
			score += 5
		}
	case CategoryPrecious, CategoryHedge:
		if row.AnnualVolatility < 0.25 {
			score += 10
		}
	case CategoryInflation:
		if row.AnnualReturn > 0.40 {
			score += 10
		}
	default: // tl_based
		if row.AnnualVolatility < 0.05 {
			score += 10
		}
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// groupedReport is the shared template for title-classified methods: find
// funds in the wanted categories, score, partition, and emit one section per
// category with exclusions in the footer.
func (a *Analyzer) groupedReport(ctx context.Context, analysis *models.QuestionAnalysis, wanted []string, title string) (string, error) {
	titles, usedFallback, err := a.fundTitles(ctx)
	if err != nil {
		return "", err
	}

	wantedSet := make(map[string]bool, len(wanted))
	for _, c := range wanted {
		wantedSet[c] = true
	}

	categoryByCode := make(map[string]string)
	titleByCode := make(map[string]string)
	var codes []string
	for _, t := range titles {
		category := classify(t.Title)
		if !wantedSet[category] {
			continue
		}
		categoryByCode[t.FCode] = category
		titleByCode[t.FCode] = t.Title
		codes = append(codes, t.FCode)
		if len(codes) >= candidateLimit {
			break
		}
	}

	if len(codes) == 0 {
		return report.Build(models.ReportMeta{Title: title, UsedFallback: usedFallback}, &models.PartitionedResults{}), nil
	}

	perfRows, perfFallback, err := a.performanceFor(ctx, codes)
	if err != nil {
		return "", err
	}
	usedFallback = usedFallback || perfFallback
	indicators := a.indicatorsFor(ctx, codes)

	var items []models.ResultItem
	for i := range perfRows {
		row := &perfRows[i]
		category := categoryByCode[row.FCode]
		items = append(items, models.ResultItem{
			Code:          row.FCode,
			Name:          titleByCode[row.FCode],
			Risk:          a.assess(row.FCode, indicators),
			PrimaryMetric: scoreFund(category, row),
			MetricLabel:   category,
			Line: fmt.Sprintf("Getiri: %s | Volatilite: %s | Puan: %s",
				common.FormatSignedPct(row.AnnualReturn),
				common.FormatPct(row.AnnualVolatility),
				common.FormatRatio(scoreFund(category, row))),
		})
	}

	parts := risk.Partition(items)
	return a.renderGrouped(title, parts, topK(analysis), usedFallback), nil
}

// fundTitles loads the code/title pairs. On an empty result or a view error
// it makes exactly one fallback attempt against the scenario view, which
// carries titles too.
func (a *Analyzer) fundTitles(ctx context.Context) ([]models.FundTitle, bool, error) {
	titles, err := a.store.LatestFundData(ctx)
	if err == nil && len(titles) > 0 {
		return titles, false, nil
	}
	if err != nil {
		a.logger.Warn().Err(err).Msg("Title view failed, trying scenario fallback")
	}

	rows, ferr := a.store.ScenarioFunds(ctx, candidateLimit)
	if ferr != nil {
		if err != nil {
			return nil, false, fmt.Errorf("title view and fallback both failed: %w", ferr)
		}
		return nil, false, ferr
	}
	out := make([]models.FundTitle, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.FundTitle{FCode: r.FCode, Title: r.Title})
	}
	return out, true, nil
}

// performanceFor loads performance rows for the classified codes. On an
// empty result or a view error it makes exactly one fallback attempt against
// the period view, annualizing the 30-day figures.
func (a *Analyzer) performanceFor(ctx context.Context, codes []string) ([]models.PerformanceRow, bool, error) {
	rows, err := a.store.PerformanceMetricsFor(ctx, codes)
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
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	out := make([]models.PerformanceRow, 0, len(periods))
	for _, p := range periods {
		if !want[p.FCode] {
			continue
		}
		out = append(out, models.PerformanceRow{
			FCode:            p.FCode,
			AnnualReturn:     p.Return30D * 12,
			AnnualVolatility: p.Volatility30,
		})
	}
	return out, true, nil
}

// renderGrouped writes the category-sectioned report with blocked funds
// summarized in the footer.
func (a *Analyzer) renderGrouped(title string, parts *models.PartitionedResults, k int, usedFallback bool) string {
	if parts.Total() == 0 {
		return report.Build(models.ReportMeta{Title: title, UsedFallback: usedFallback}, parts)
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n══════════════════════════════════════════════════\n\n")
	fmt.Fprintf(&b, "Toplam: %d | Uygun: %d | Uyarılı: %d | Engellenen: %d\n\n",
		parts.Total(), len(parts.Allowed), len(parts.Warned), len(parts.Blocked))

	byCategory := make(map[string][]models.ResultItem)
	for _, item := range parts.Allowed {
		byCategory[item.MetricLabel] = append(byCategory[item.MetricLabel], item)
	}

	for _, category := range categoryOrder {
		group := byCategory[category]
		if len(group) == 0 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].PrimaryMetric != group[j].PrimaryMetric {
				return group[i].PrimaryMetric > group[j].PrimaryMetric
			}
			return group[i].Code < group[j].Code
		})
		if len(group) > k {
			group = group[:k]
		}

		fmt.Fprintf(&b, "%s\n", categoryLabels[category])
		for i, item := range group {
			fmt.Fprintf(&b, "%2d. %s %s - %s\n    %s\n",
				i+1, item.Risk.Level.Glyph(), item.Code, item.Name, item.Line)
		}
		b.WriteString("\n")
	}

	// Footer: risk partition exclusions.
	if len(parts.Blocked) > 0 {
		excluded := make([]string, 0, len(parts.Blocked))
		for _, item := range parts.Blocked {
			excluded = append(excluded, item.Code)
		}
		fmt.Fprintf(&b, "🚫 Yüksek risk nedeniyle hariç tutulanlar: %s\n", strings.Join(excluded, ", "))
	}
	if len(parts.Warned) > 0 {
		warned := make([]string, 0, len(parts.Warned))
		for _, item := range parts.Warned {
			warned = append(warned, item.Code)
		}
		fmt.Fprintf(&b, "⚠️ Dikkat gerektirenler: %s\n", strings.Join(warned, ", "))
	}
	if usedFallback {
		b.WriteString("Not: birincil sorgu sonuç vermedi, yedek sorgu kullanıldı.\n")
	}

	return b.String()
}

// inflationScenario reads the dedicated inflation-protection view and groups
// funds by protection category.
func (a *Analyzer) inflationScenario(ctx context.Context, analysis *models.QuestionAnalysis) (string, error) {
	rows, err := a.store.ScenarioFunds(ctx, candidateLimit)
	if err != nil || len(rows) == 0 {
		// Fallback: reuse the title-classified inflation category.
		if err != nil {
			a.logger.Warn().Err(err).Msg("Scenario view failed, using title classification")
		}
		return a.groupedReport(ctx, analysis, []string{CategoryInflation, CategoryPrecious}, "🛡️ Enflasyon Koruması Analizi")
	}

	codes := make([]string, len(rows))
	for i, r := range rows {
		codes[i] = r.FCode
	}
	indicators := a.indicatorsFor(ctx, codes)

	var items []models.ResultItem
	for i := range rows {
		row := &rows[i]
		items = append(items, models.ResultItem{
			Code:          row.FCode,
			Name:          row.Title,
			Risk:          a.assess(row.FCode, indicators),
			PrimaryMetric: row.ProtectionScore,
			MetricLabel:   row.ProtectionCategory,
			Line: fmt.Sprintf("Koruma puanı: %s | Getiri: %s | Volatilite: %s",
				common.FormatRatio(row.ProtectionScore),
				common.FormatSignedPct(row.AnnualReturn),
				common.FormatPct(row.AnnualVolatility)),
		})
	}

	parts := risk.Partition(items)
	return a.renderProtection(parts, topK(analysis)), nil
}

// Protection categories in report order.
var protectionOrder = []string{
	models.ProtectionGold, models.ProtectionFX, models.ProtectionEquity,
	models.ProtectionBond, models.ProtectionParticipate, models.ProtectionMixed,
	models.ProtectionOther,
}

func (a *Analyzer) renderProtection(parts *models.PartitionedResults, k int) string {
	if parts.Total() == 0 {
		return report.Build(models.ReportMeta{Title: "🛡️ Enflasyon Koruması Analizi"}, parts)
	}

	var b strings.Builder
	b.WriteString("🛡️ Enflasyon Koruması Analizi\n")
	b.WriteString("══════════════════════════════════════════════════\n\n")
	fmt.Fprintf(&b, "Toplam: %d | Uygun: %d | Uyarılı: %d | Engellenen: %d\n\n",
		parts.Total(), len(parts.Allowed), len(parts.Warned), len(parts.Blocked))

	byCategory := make(map[string][]models.ResultItem)
	for _, item := range parts.Allowed {
		byCategory[item.MetricLabel] = append(byCategory[item.MetricLabel], item)
	}

	for _, category := range protectionOrder {
		group := byCategory[category]
		if len(group) == 0 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].PrimaryMetric != group[j].PrimaryMetric {
				return group[i].PrimaryMetric > group[j].PrimaryMetric
			}
			return group[i].Code < group[j].Code
		})
		if len(group) > k {
			group = group[:k]
		}

		fmt.Fprintf(&b, "▸ %s\n", category)
		for i, item := range group {
			fmt.Fprintf(&b, "%2d. %s %s - %s\n    %s\n",
				i+1, item.Risk.Level.Glyph(), item.Code, item.Name, item.Line)
		}
		b.WriteString("\n")
	}

	if len(parts.Blocked) > 0 {
		excluded := make([]string, 0, len(parts.Blocked))
		for _, item := range parts.Blocked {
			excluded = append(excluded, item.Code)
		}
		fmt.Fprintf(&b, "🚫 Yüksek risk nedeniyle hariç tutulanlar: %s\n", strings.Join(excluded, ", "))
	}

	return b.String()
}

func (a *Analyzer) indicatorsFor(ctx context.Context, codes []string) map[string]*models.IndicatorRow {
	rows, err := a.store.TechnicalIndicatorsFor(ctx, codes)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Indicator lookup failed, scoring with defaults")
		return map[string]*models.IndicatorRow{}
	}
	out := make(map[string]*models.IndicatorRow, len(rows))
	for i := range rows {
		out[rows[i].FCode] = &rows[i]
	}
	return out
}

func (a *Analyzer) assess(fcode string, indicators map[string]*models.IndicatorRow) *models.RiskAssessment {
	row, ok := indicators[fcode]
	if !ok {
		return risk.Unknown(fcode)
	}
	return a.scorer.Score(fcode, models.RiskInputFromIndicators(row))
}

func topK(analysis *models.QuestionAnalysis) int {
	if analysis != nil && analysis.Parameters.RequestedCount > 0 {
		return analysis.Parameters.RequestedCount
	}
	return report.DefaultTopK
}

var _ interfaces.Analyzer = (*Analyzer)(nil)
