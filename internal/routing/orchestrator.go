// Package routing turns a question analysis into a ranked, risk-enriched
// list of analyzer routes.
package routing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fonradar/fonradar/internal/common"
	"github.com/fonradar/fonradar/internal/interfaces"
	"github.com/fonradar/fonradar/internal/models"
	"github.com/fonradar/fonradar/internal/risk"
)

// Orchestrator builds ranked routes from question analyses. Base routes are
// cached per normalized question; risk enrichment always runs fresh.
type Orchestrator struct {
	store     interfaces.ViewStore
	scorer    interfaces.RiskScorer
	logger    *common.Logger
	cache     *routeCache
	maxRoutes int
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithMaxRoutes caps the ranked route list (default 5).
func WithMaxRoutes(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRoutes = n
		}
	}
}

// WithCache sizes the route cache.
func WithCache(ttl time.Duration, entries int) Option {
	return func(o *Orchestrator) {
		o.cache = newRouteCache(ttl, entries)
	}
}

// NewOrchestrator creates a routing orchestrator.
func NewOrchestrator(store interfaces.ViewStore, scorer interfaces.RiskScorer, logger *common.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		scorer:    scorer,
		logger:    logger,
		cache:     newRouteCache(time.Hour, 256),
		maxRoutes: 5,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Route produces the ranked route list for an analysis. Base routes (static
// tables plus text-dependent rules) may come from cache; risk assessments,
// the high-risk prepend rule, ordering, and truncation are applied per call.
func (o *Orchestrator) Route(ctx context.Context, analysis *models.QuestionAnalysis) ([]models.Route, error) {
	base, cached := o.cache.get(analysis.Normalized)
	if !cached {
		base = o.buildBaseRoutes(analysis)
		o.cache.set(analysis.Normalized, base)
	}

	routes := cloneRoutes(base)

	assessments, err := o.assessFunds(ctx, analysis.FundCodes)
	if err != nil {
		return nil, fmt.Errorf("risk enrichment failed: %w", err)
	}

	routes = o.enrich(routes, analysis, assessments)

	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].ExecutionOrder != routes[j].ExecutionOrder {
			return routes[i].ExecutionOrder < routes[j].ExecutionOrder
		}
		return routes[i].Confidence > routes[j].Confidence
	})

	if len(routes) > o.maxRoutes {
		routes = routes[:o.maxRoutes]
	}

	o.logger.Debug().
		Str("intent", string(analysis.Intent)).
		Str("type", string(analysis.Type)).
		Int("routes", len(routes)).
		Bool("cached", cached).
		Msg("Routed question")

	return routes, nil
}

// buildBaseRoutes applies the primary table, keyword table, and the
// text-dependent special rules. Risk-dependent rules live in enrich.
func (o *Orchestrator) buildBaseRoutes(analysis *models.QuestionAnalysis) []models.Route {
	var routes []models.Route

	reason := fmt.Sprintf("%s_%s", analysis.Intent, analysis.Type)
	for _, e := range primaryRoutes[analysis.Intent][analysis.Type] {
		routes = append(routes, models.Route{
			Handler:        e.Handler,
			Method:         e.Method,
			Confidence:     e.Confidence,
			Reason:         reason,
			ExecutionOrder: 1,
		})
	}

	// Keyword categories append auxiliary handlers once, scaled by 0.8.
	for _, category := range keywordOrder {
		if !analysis.HasKeyword(category) {
			continue
		}
		e, ok := keywordRoutes[category]
		if !ok || hasHandler(routes, e.Handler) {
			continue
		}
		routes = append(routes, models.Route{
			Handler:        e.Handler,
			Method:         e.Method,
			Confidence:     e.Confidence * 0.8,
			Reason:         "keyword_" + category,
			ExecutionOrder: 1,
		})
	}

	// Rule: single-fund questions without a currency keyword never go to the
	// currency/inflation analyzer.
	if analysis.Type == models.QuestionSingleFund && !analysis.HasKeyword(models.KeywordCurrency) {
		routes = dropHandler(routes, models.HandlerCurrency)
	}

	// Rule: comparisons run on the performance analyzer only.
	if analysis.Type == models.QuestionComparison {
		routes = retainHandler(routes, models.HandlerPerformance)
	}

	// Rule: life-goal recommendations go to the personal-finance analyzer.
	if analysis.Intent == models.IntentRecommend &&
		(analysis.Parameters.Days >= 365 || analysis.Parameters.Amount > 0) {
		routes = prepend(routes, models.Route{
			Handler:        models.HandlerLifePlan,
			Method:         MethodGoalPlan,
			Confidence:     0.9,
			Reason:         "life_goal_detected",
			ExecutionOrder: 0,
		})
	}

	// Rule: management-company questions get a portfolio-company route first.
	if strings.Contains(analysis.Normalized, portfolioCompanyMarker) {
		routes = prepend(routes, models.Route{
			Handler:        models.HandlerPortfolioCompany,
			Method:         MethodCompanyFunds,
			Confidence:     0.95,
			Reason:         "portfolio_company_detected",
			ExecutionOrder: 0,
		})
	}

	// Rule: safety wording marks every route for a risk check.
	if containsAny(analysis.Normalized, safetyKeywords) {
		for i := range routes {
			routes[i].RequireRiskCheck = true
		}
	}

	return routes
}

// enrich attaches fresh contexts and applies the risk-dependent prepend rule.
func (o *Orchestrator) enrich(routes []models.Route, analysis *models.QuestionAnalysis, assessments map[string]*models.RiskAssessment) []models.Route {
	var extreme []string
	highRisk := false
	for _, code := range analysis.FundCodes {
		a := assessments[code]
		if a == nil {
			continue
		}
		switch a.Level {
		case models.RiskExtreme:
			extreme = append(extreme, code)
			highRisk = true
		case models.RiskHigh:
			highRisk = true
		}
	}

	if highRisk {
		routes = prepend(routes, models.Route{
			Handler:        models.HandlerRiskAnalysis,
			Method:         MethodRiskReport,
			Confidence:     0.99,
			Reason:         "high_risk_funds_detected",
			ExecutionOrder: 0,
		})
	}

	requestID := uuid.NewString()
	now := time.Now().UTC()
	for i := range routes {
		rc := &models.RouteContext{
			Question:  analysis.Original,
			Handler:   routes[i].Handler,
			RequestID: requestID,
			Timestamp: now,
		}
		if len(analysis.FundCodes) > 0 {
			rc.RiskAssessments = assessments
			rc.HasExtremeRisk = len(extreme) > 0
			rc.ExtremeRiskFunds = extreme
		}
		routes[i].Context = rc
	}

	return routes
}

// assessFunds scores each named fund from its indicator row. Funds without
// a row get an UNKNOWN assessment; a store error aborts routing.
func (o *Orchestrator) assessFunds(ctx context.Context, codes []string) (map[string]*models.RiskAssessment, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	rows, err := o.store.TechnicalIndicatorsFor(ctx, codes)
	if err != nil {
		return nil, err
	}

	byCode := make(map[string]*models.IndicatorRow, len(rows))
	for i := range rows {
		byCode[rows[i].FCode] = &rows[i]
	}

	out := make(map[string]*models.RiskAssessment, len(codes))
	for _, code := range codes {
		row, ok := byCode[code]
		if !ok {
			out[code] = risk.Unknown(code)
			continue
		}
		out[code] = o.scorer.Score(code, models.RiskInputFromIndicators(row))
	}
	return out, nil
}

func cloneRoutes(routes []models.Route) []models.Route {
	out := make([]models.Route, len(routes))
	copy(out, routes)
	for i := range out {
		out[i].Context = nil
	}
	return out
}

func prepend(routes []models.Route, r models.Route) []models.Route {
	return append([]models.Route{r}, routes...)
}

func hasHandler(routes []models.Route, handler string) bool {
	for _, r := range routes {
		if r.Handler == handler {
			return true
		}
	}
	return false
}

func dropHandler(routes []models.Route, handler string) []models.Route {
	out := routes[:0]
	for _, r := range routes {
		if r.Handler != handler {
			out = append(out, r)
		}
	}
	return out
}

func retainHandler(routes []models.Route, handler string) []models.Route {
	out := routes[:0]
	for _, r := range routes {
		if r.Handler == handler {
			out = append(out, r)
		}
	}
	return out
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

var _ interfaces.Orchestrator = (*Orchestrator)(nil)
