package models

// RiskLevel is the four-band risk classification plus UNKNOWN for funds
// without indicator data.
type RiskLevel string

const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskExtreme RiskLevel = "EXTREME"
	RiskUnknown RiskLevel = "UNKNOWN"
)

// Glyph returns the stable report glyph for the level. The mapping is part
// of the external report contract.
func (l RiskLevel) Glyph() string {
	switch l {
	case RiskLow:
		return "🟢"
	case RiskMedium:
		return "🟡"
	case RiskHigh:
		return "🟠"
	case RiskExtreme:
		return "🔴"
	default:
		return "⚪"
	}
}

// Severity grades an individual risk factor.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Risk factor codes, in scorer evaluation order.
const (
	FactorExtremePriceDrop        = "EXTREME_PRICE_DROP"
	FactorSignificantPriceDrop    = "SIGNIFICANT_PRICE_DROP"
	FactorPostCrashRecovery       = "POST_CRASH_RECOVERY"
	FactorOverboughtConsolidation = "OVERBOUGHT_CONSOLIDATION"
	FactorInactiveFund            = "INACTIVE_FUND"
	FactorLowActivity             = "LOW_ACTIVITY"
	FactorLowInvestorCount        = "LOW_INVESTOR_COUNT"
)

// RiskFactor is one accumulated scoring factor.
type RiskFactor struct {
	Code        string   `json:"factor"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Action      string   `json:"action,omitempty"`
	Opportunity string   `json:"opportunity,omitempty"`
}

// RiskAssessment is the scorer output for a single fund.
type RiskAssessment struct {
	FCode            string       `json:"fcode"`
	Level            RiskLevel    `json:"level"`
	Score            int          `json:"score"`
	Factors          []RiskFactor `json:"factors"`
	Tradeable        bool         `json:"tradeable"`         // score < 50
	RequiresResearch bool         `json:"requires_research"` // score >= 30
}

// RiskInput carries the indicator fields the scorer reads. Nil fields take
// the documented defaults (price_vs_sma20=0, rsi=50, stochastic=50,
// days_since_last_trade=0, investorcount=0).
type RiskInput struct {
	PriceVsSMA20       *float64
	RSI14              *float64
	Stochastic14       *float64
	DaysSinceLastTrade *int
	InvestorCount      *int
}

// RiskInputFromIndicators builds a fully populated scorer input from a row.
func RiskInputFromIndicators(row *IndicatorRow) RiskInput {
	if row == nil {
		return RiskInput{}
	}
	return RiskInput{
		PriceVsSMA20:       &row.PriceVsSMA20,
		RSI14:              &row.RSI14,
		Stochastic14:       &row.Stochastic14,
		DaysSinceLastTrade: &row.DaysSinceLastTrade,
		InvestorCount:      &row.InvestorCount,
	}
}
