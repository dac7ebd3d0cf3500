package routing

import "github.com/fonradar/fonradar/internal/models"

// Analyzer method names referenced by the routing tables.
const (
	MethodSingleFund     = "single_fund_analysis"
	MethodComparison     = "comparison"
	MethodTopGainers     = "top_gainers"
	MethodSafest         = "safest"
	MethodYearPlan       = "year_recommendation"
	MethodLowVolatility  = "low_volatility"
	MethodRiskReport     = "risk_report"
	MethodCompanyFunds   = "company_funds"
	MethodMetricOverview = "metric_overview"
	MethodCurrencyFunds  = "currency_funds"
	MethodPreciousMetals = "precious_metals"
	MethodInflationScan  = "inflation_scenario"
	MethodSignals        = "technical_signals"
	MethodPattern        = "pattern_analysis"
	MethodGoalPlan       = "goal_plan"
)

// tableEntry is one static routing decision.
type tableEntry struct {
	Handler    string
	Method     string
	Confidence float64
}

// primaryRoutes maps (intent, question type) to ranked handler candidates.
var primaryRoutes = map[models.Intent]map[models.QuestionType][]tableEntry{
	models.IntentAnalyze: {
		models.QuestionSingleFund: {{models.HandlerPerformance, MethodSingleFund, 0.9}},
		models.QuestionComparison: {{models.HandlerPerformance, MethodComparison, 0.95}},
		models.QuestionMultiFund:  {{models.HandlerPerformance, MethodComparison, 0.85}},
		models.QuestionGeneral: {
			{models.HandlerAdvancedMetrics, MethodMetricOverview, 0.6},
			{models.HandlerPerformance, MethodTopGainers, 0.55},
		},
	},
	models.IntentCompare: {
		models.QuestionComparison: {{models.HandlerPerformance, MethodComparison, 0.95}},
		models.QuestionMultiFund:  {{models.HandlerPerformance, MethodComparison, 0.9}},
		models.QuestionSingleFund: {{models.HandlerPerformance, MethodSingleFund, 0.7}},
		models.QuestionGeneral:    {{models.HandlerPerformance, MethodTopGainers, 0.5}},
	},
	models.IntentList: {
		models.QuestionGeneral:    {{models.HandlerPerformance, MethodTopGainers, 0.85}},
		models.QuestionMultiFund:  {{models.HandlerPerformance, MethodComparison, 0.8}},
		models.QuestionSingleFund: {{models.HandlerPerformance, MethodSingleFund, 0.7}},
	},
	models.IntentRecommend: {
		models.QuestionGeneral:    {{models.HandlerPerformance, MethodYearPlan, 0.9}},
		models.QuestionSingleFund: {{models.HandlerPerformance, MethodSingleFund, 0.8}},
		models.QuestionMultiFund:  {{models.HandlerPerformance, MethodComparison, 0.75}},
	},
	models.IntentPredict: {
		models.QuestionGeneral: {
			{models.HandlerCurrency, MethodInflationScan, 0.7},
			{models.HandlerAdvancedMetrics, MethodMetricOverview, 0.5},
		},
		models.QuestionSingleFund: {{models.HandlerTechnical, MethodPattern, 0.75}},
	},
	models.IntentRisk: {
		models.QuestionGeneral:    {{models.HandlerPerformance, MethodSafest, 0.9}},
		models.QuestionSingleFund: {{models.HandlerPerformance, MethodSingleFund, 0.85}},
		models.QuestionMultiFund:  {{models.HandlerPerformance, MethodComparison, 0.7}},
	},
	models.IntentTechnical: {
		models.QuestionGeneral:    {{models.HandlerTechnical, MethodSignals, 0.9}},
		models.QuestionSingleFund: {{models.HandlerTechnical, MethodPattern, 0.9}},
		models.QuestionMultiFund:  {{models.HandlerTechnical, MethodSignals, 0.8}},
		models.QuestionComparison: {{models.HandlerPerformance, MethodComparison, 0.8}},
	},
	models.IntentScenario: {
		models.QuestionGeneral:    {{models.HandlerCurrency, MethodInflationScan, 0.85}},
		models.QuestionSingleFund: {{models.HandlerPerformance, MethodSingleFund, 0.7}},
		models.QuestionMultiFund:  {{models.HandlerCurrency, MethodInflationScan, 0.75}},
	},
}

// keywordRoutes maps keyword categories to auxiliary handlers. Confidences
// here are base values; the orchestrator scales them by 0.8 on append.
var keywordRoutes = map[string]tableEntry{
	models.KeywordCurrency:    {models.HandlerCurrency, MethodCurrencyFunds, 1.0},
	models.KeywordGold:        {models.HandlerCurrency, MethodPreciousMetals, 0.95},
	models.KeywordEquity:      {models.HandlerPerformance, MethodTopGainers, 0.7},
	models.KeywordBond:        {models.HandlerPerformance, MethodSafest, 0.7},
	models.KeywordMoneyMarket: {models.HandlerPerformance, MethodLowVolatility, 0.7},
}

// keywordOrder fixes the lookup order for auxiliary keyword routes.
var keywordOrder = []string{
	models.KeywordCurrency,
	models.KeywordGold,
	models.KeywordEquity,
	models.KeywordBond,
	models.KeywordMoneyMarket,
}

// safetyKeywords force require_risk_check on every route.
var safetyKeywords = []string{"güvenli", "risk", "kayıp", "volatilite"}

// portfolioCompanyMarker flags questions about a management company's funds.
const portfolioCompanyMarker = "portföy"
