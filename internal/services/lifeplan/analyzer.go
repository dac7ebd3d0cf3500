// Package lifeplan implements the personal-finance analyzer: maps life-goal
// questions to an asset-allocation template and fills each bucket with
// volatility-banded, risk-gated fund picks.
package lifeplan

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fonradar/fonradar/internal/common"
	"github.com/fonradar/fonradar/internal/interfaces"
	"github.com/fonradar/fonradar/internal/models"
	"github.com/fonradar/fonradar/internal/risk"
)

// MethodGoalPlan is the single routed entry point.
const MethodGoalPlan = "goal_plan"

const (
	candidateLimit   = 50
	defaultYears     = 5
	picksPerBucket   = 3
	shortHorizonYear = 3
)

// Goal kinds recognized in the question text.
const (
	goalHome       = "home"
	goalChild      = "child"
	goalRetirement = "retirement"
	goalGeneric    = "generic"
)

// profile is one allocation template.
type profile struct {
	name    string
	label   string
	buckets []bucket
}

// bucket is one asset slice: its share of the plan and the volatility
// ceiling its candidates must clear.
type bucket struct {
	name       string
	label      string
	percent    int
	volCeiling float64
	titleToken string
}

var profiles = map[string]profile{
	"aggressive": {
		name:  "aggressive",
		label: "agresif",
		buckets: []bucket{
			{"equity", "Hisse", 60, 0.45, "HİSSE"},
			{"gold", "Altın", 20, 0.30, "ALTIN"},
			{"bond", "Tahvil", 15, 0.12, "BORÇLANMA"},
			{"money_market", "Para Piyasası", 5, 0.05, "PARA PİYASASI"},
		},
	},
	"balanced": {
		name:  "balanced",
		label: "dengeli",
		buckets: []bucket{
			{"equity", "Hisse", 35, 0.40, "HİSSE"},
			{"gold", "Altın", 20, 0.30, "ALTIN"},
			{"bond", "Tahvil", 30, 0.12, "BORÇLANMA"},
			{"money_market", "Para Piyasası", 15, 0.05, "PARA PİYASASI"},
		},
	},
	"conservative": {
		name:  "conservative",
		label: "temkinli",
		buckets: []bucket{
			{"equity", "Hisse", 15, 0.30, "HİSSE"},
			{"gold", "Altın", 15, 0.25, "ALTIN"},
			{"bond", "Tahvil", 40, 0.10, "BORÇLANMA"},
			{"money_market", "Para Piyasası", 30, 0.04, "PARA PİYASASI"},
		},
	},
	"very_conservative": {
		name:  "very_conservative",
		label: "çok temkinli",
		buckets: []bucket{
			{"bond", "Tahvil", 40, 0.08, "BORÇLANMA"},
			{"money_market", "Para Piyasası", 60, 0.03, "PARA PİYASASI"},
		},
	},
}

// Analyzer builds goal-based fund plans.
type Analyzer struct {
	store  interfaces.ViewStore
	scorer interfaces.RiskScorer
	logger *common.Logger
}

// NewAnalyzer creates a personal-finance analyzer.
func NewAnalyzer(store interfaces.ViewStore, scorer interfaces.RiskScorer, logger *common.Logger) *Analyzer {
	return &Analyzer{store: store, scorer: scorer, logger: logger}
}

// Name implements interfaces.Analyzer.
func (a *Analyzer) Name() string { return models.HandlerLifePlan }

// Methods implements interfaces.Analyzer.
func (a *Analyzer) Methods() []string { return []string{MethodGoalPlan} }

// Execute implements interfaces.Analyzer.
func (a *Analyzer) Execute(ctx context.Context, method string, analysis *models.QuestionAnalysis, rc *models.RouteContext) (string, error) {
	years := analysis.Parameters.Days / 365
	if years <= 0 {
		years = defaultYears
	}
	goal := detectGoal(analysis.Normalized)
	prof := selectProfile(years, goal, analysis.Normalized)

	titles, titleFallback, err := a.fundTitles(ctx)
	if err != nil {
		return "", err
	}

	perfRows, perfFallback, err := a.performanceRows(ctx)
	if err != nil {
		return "", err
	}
	usedFallback := titleFallback || perfFallback

	perfByCode := make(map[string]*models.PerformanceRow, len(perfRows))
	codes := make([]string, 0, len(perfRows))
	for i := range perfRows {
		perfByCode[perfRows[i].FCode] = &perfRows[i]
		codes = append(codes, perfRows[i].FCode)
	}
	indicators := a.indicatorsFor(ctx, codes)

	var b strings.Builder
	fmt.Fprintf(&b, "🎯 %s (%d yıl, %s profil)\n", goalTitle(goal), years, prof.label)
	b.WriteString("══════════════════════════════════════════════════\n\n")
	if analysis.Parameters.Amount > 0 {
		fmt.Fprintf(&b, "Planlanan tutar: %d TL\n\n", analysis.Parameters.Amount)
	}

	var excluded []string
	for _, bk := range prof.buckets {
		picks, blocked := a.fillBucket(bk, titles, perfByCode, indicators, years, goal)
		excluded = append(excluded, blocked...)

		fmt.Fprintf(&b, "▸ %s: %%%d", bk.label, bk.percent)
		if analysis.Parameters.Amount > 0 {
			fmt.Fprintf(&b, " (%d TL)", analysis.Parameters.Amount*int64(bk.percent)/100)
		}
		b.WriteString("\n")

		if len(picks) == 0 {
			b.WriteString("   Uygun fon bulunamadı.\n\n")
			continue
		}
		for i, item := range picks {
			fmt.Fprintf(&b, "%2d. %s %s - %s\n    %s\n",
				i+1, item.Risk.Level.Glyph(), item.Code, item.Name, item.Line)
		}
		b.WriteString("\n")
	}

	if len(excluded) > 0 {
		fmt.Fprintf(&b, "🚫 Risk nedeniyle değerlendirme dışı: %s\n", strings.Join(dedup(excluded), ", "))
	}
	if usedFallback {
		b.WriteString("Not: birincil sorgu sonuç vermedi, yedek sorgu kullanıldı.\n")
	}
	if years <= shortHorizonYear {
		b.WriteString("Not: kısa vadeli hedeflerde yalnızca düşük ve orta riskli fonlar önerilir.\n")
	}

	return b.String(), nil
}

// fillBucket selects the bucket's top picks: title-matched funds inside the
// volatility band, risk partitioned with EXTREME always excluded and
// short-horizon home goals limited to LOW and MEDIUM.
func (a *Analyzer) fillBucket(
	bk bucket,
	titles []models.FundTitle,
	perfByCode map[string]*models.PerformanceRow,
	indicators map[string]*models.IndicatorRow,
	years int,
	goal string,
) (picks []models.ResultItem, blocked []string) {
	var items []models.ResultItem
	for _, t := range titles {
		if !strings.Contains(strings.ToUpper(t.Title), bk.titleToken) {
			continue
		}
		row, ok := perfByCode[t.FCode]
		if !ok || row.AnnualVolatility > bk.volCeiling {
			continue
		}
		items = append(items, models.ResultItem{
			Code:          t.FCode,
			Name:          t.Title,
			Risk:          a.assess(t.FCode, indicators),
			PrimaryMetric: row.AnnualReturn,
			MetricLabel:   "yıllık getiri",
			Line: fmt.Sprintf("Getiri: %s | Volatilite: %s",
				common.FormatSignedPct(row.AnnualReturn), common.FormatPct(row.AnnualVolatility)),
		})
	}

	parts := risk.Partition(items)
	for _, item := range parts.Blocked {
		blocked = append(blocked, item.Code)
	}

	allowed := parts.Allowed
	// Home purchase inside three years accepts only LOW and MEDIUM funds.
	if goal == goalHome && years <= shortHorizonYear {
		tight := allowed[:0]
		for _, item := range allowed {
			if item.Risk.Level == models.RiskLow || item.Risk.Level == models.RiskMedium {
				tight = append(tight, item)
			} else {
				blocked = append(blocked, item.Code)
			}
		}
		allowed = tight
	}

	sort.SliceStable(allowed, func(i, j int) bool {
		if allowed[i].PrimaryMetric != allowed[j].PrimaryMetric {
			return allowed[i].PrimaryMetric > allowed[j].PrimaryMetric
		}
		return allowed[i].Code < allowed[j].Code
	})
	if len(allowed) > picksPerBucket {
		allowed = allowed[:picksPerBucket]
	}
	return allowed, blocked
}

func detectGoal(normalized string) string {
	switch {
	case strings.Contains(normalized, "ev ") || strings.HasSuffix(normalized, "ev") ||
		strings.Contains(normalized, "konut"):
		return goalHome
	case strings.Contains(normalized, "çocuk") || strings.Contains(normalized, "eğitim"):
		return goalChild
	case strings.Contains(normalized, "emeklilik"):
		return goalRetirement
	default:
		return goalGeneric
	}
}

// selectProfile picks the template from the horizon, then shifts it by any
// explicit risk wording.
func selectProfile(years int, goal, normalized string) profile {
	name := horizonProfile(years)

	// Child savings accept anything non-EXTREME but never aggressive.
	if goal == goalChild && name == "aggressive" {
		name = "balanced"
	}

	switch {
	case strings.Contains(normalized, "agresif"):
		name = riskier(name)
	case strings.Contains(normalized, "garanti") || strings.Contains(normalized, "güvenli") ||
		strings.Contains(normalized, "temkinli"):
		name = safer(name)
	}

	return profiles[name]
}

func horizonProfile(years int) string {
	switch {
	case years >= 10:
		return "aggressive"
	case years >= 5:
		return "balanced"
	case years > shortHorizonYear:
		return "conservative"
	default:
		return "very_conservative"
	}
}

var profileOrder = []string{"very_conservative", "conservative", "balanced", "aggressive"}

func riskier(name string) string {
	for i, n := range profileOrder {
		if n == name && i+1 < len(profileOrder) {
			return profileOrder[i+1]
		}
	}
	return name
}

func safer(name string) string {
	for i, n := range profileOrder {
		if n == name && i > 0 {
			return profileOrder[i-1]
		}
	}
	return name
}

func goalTitle(goal string) string {
	switch goal {
	case goalHome:
		return "Ev Alma Planı"
	case goalChild:
		return "Çocuk Birikim Planı"
	case goalRetirement:
		return "Emeklilik Planı"
	default:
		return "Birikim Planı"
	}
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

// performanceRows loads the bounded performance candidate set. On an empty
// result or a view error it makes exactly one fallback attempt against the
// period view, annualizing the 30-day figures.
func (a *Analyzer) performanceRows(ctx context.Context) ([]models.PerformanceRow, bool, error) {
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

func (a *Analyzer) indicatorsFor(ctx context.Context, codes []string) map[string]*models.IndicatorRow {
	if len(codes) == 0 {
		return map[string]*models.IndicatorRow{}
	}
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

func dedup(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := codes[:0]
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

var _ interfaces.Analyzer = (*Analyzer)(nil)
