package models

import "time"

// Analyzer handler names used by the routing tables.
const (
	HandlerPerformance      = "performance"
	HandlerAdvancedMetrics  = "advanced_metrics"
	HandlerCurrency         = "currency_inflation"
	HandlerTechnical        = "technical"
	HandlerLifePlan         = "personal_finance"
	HandlerPortfolioCompany = "portfolio_company"
	HandlerRiskAnalysis     = "risk_analysis"
)

// RouteContext travels with a route into the analyzer. It always carries the
// question, handler, and timestamp; risk assessments are attached whenever
// the question names funds.
type RouteContext struct {
	Question         string                     `json:"question"`
	Handler          string                     `json:"handler"`
	RequestID        string                     `json:"request_id"`
	Timestamp        time.Time                  `json:"timestamp"`
	RiskAssessments  map[string]*RiskAssessment `json:"risk_assessments,omitempty"`
	HasExtremeRisk   bool                       `json:"has_extreme_risk,omitempty"`
	ExtremeRiskFunds []string                   `json:"extreme_risk_funds,omitempty"`
}

// Route is one dispatch decision produced by the routing orchestrator.
// Routes sort by (ExecutionOrder ascending, Confidence descending).
type Route struct {
	Handler          string        `json:"handler"`
	Method           string        `json:"method"`
	Confidence       float64       `json:"confidence"` // [0,1]
	Context          *RouteContext `json:"context"`
	Reason           string        `json:"reason"`
	ExecutionOrder   int           `json:"execution_order"`
	RequireRiskCheck bool          `json:"require_risk_check,omitempty"`
}
