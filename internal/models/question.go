package models

// QuestionType classifies a question by how many funds it references.
type QuestionType string

const (
	QuestionSingleFund QuestionType = "single_fund"
	QuestionComparison QuestionType = "comparison"
	QuestionMultiFund  QuestionType = "multi_fund"
	QuestionGeneral    QuestionType = "general"
)

// Intent is the recognized purpose of a question.
type Intent string

const (
	IntentAnalyze   Intent = "analyze"
	IntentCompare   Intent = "compare"
	IntentList      Intent = "list"
	IntentRecommend Intent = "recommend"
	IntentPredict   Intent = "predict"
	IntentRisk      Intent = "risk"
	IntentTechnical Intent = "technical"
	IntentScenario  Intent = "scenario"
)

// Keyword categories matched against the normalized question text.
const (
	KeywordCurrency    = "currency"
	KeywordGold        = "gold"
	KeywordEquity      = "equity"
	KeywordBond        = "bond"
	KeywordMoneyMarket = "money_market"
	KeywordTime        = "time"
)

// Parameters holds numeric options recognized in the question text.
// Zero means the option was not present.
type Parameters struct {
	RequestedCount int      `json:"requested_count,omitempty"`
	Percentage     int      `json:"percentage,omitempty"`
	Amount         int64    `json:"amount,omitempty"`
	Days           int      `json:"days,omitempty"`
	FundCodes      []string `json:"fund_codes,omitempty"`
}

// QuestionAnalysis is the structured reading of a free-form question.
type QuestionAnalysis struct {
	Original   string              `json:"original"`
	Normalized string              `json:"normalized"`
	FundCodes  []string            `json:"fund_codes"` // first-occurrence order, deduplicated
	Candidates []string            `json:"candidates"` // code-shaped tokens that failed resolution
	Type       QuestionType        `json:"question_type"`
	Intent     Intent              `json:"intent"`
	Keywords   map[string][]string `json:"keywords"`
	Parameters Parameters          `json:"parameters"`
}

// HasKeyword reports whether the category matched at least one token.
func (qa *QuestionAnalysis) HasKeyword(category string) bool {
	return len(qa.Keywords[category]) > 0
}
