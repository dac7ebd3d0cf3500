// Package risk implements the pure fund risk scorer and the result
// partitioner shared by all analyzers.
package risk

import (
	"github.com/fonradar/fonradar/internal/interfaces"
	"github.com/fonradar/fonradar/internal/models"
)

// Score thresholds for deriving the risk level.
const (
	extremeThreshold  = 50
	highThreshold     = 30
	mediumThreshold   = 15
	tradeableCeiling  = 50
	researchThreshold = 30
)

// Scorer maps indicator fields to a risk assessment. It is deterministic,
// side-effect free, and performs no I/O.
type Scorer struct{}

// NewScorer creates a scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score evaluates the fixed rule set against the input. Missing fields take
// their documented defaults. Within each mutually exclusive group (price-drop
// bands, inactivity bands) only the first matching rule fires.
func (s *Scorer) Score(fcode string, in models.RiskInput) *models.RiskAssessment {
	priceVsSMA20 := valueOr(in.PriceVsSMA20, 0)
	rsi := valueOr(in.RSI14, 50)
	stochastic := valueOr(in.Stochastic14, 50)
	daysSinceTrade := intOr(in.DaysSinceLastTrade, 0)
	investors := intOr(in.InvestorCount, 0)

	score := 0
	var factors []models.RiskFactor

	add := func(f models.RiskFactor, weight int) {
		factors = append(factors, f)
		score += weight
	}

	// Price-drop band (exclusive)
	switch {
	case priceVsSMA20 <= -70:
		add(models.RiskFactor{
			Code:        models.FactorExtremePriceDrop,
			Severity:    models.SeverityCritical,
			Description: "price more than 70% below its 20-day average",
			Action:      "avoid new positions until price action stabilizes",
		}, 50)
	case priceVsSMA20 < -30:
		add(models.RiskFactor{
			Code:        models.FactorSignificantPriceDrop,
			Severity:    models.SeverityHigh,
			Description: "price 30-70% below its 20-day average",
			Action:      "review before adding exposure",
		}, 20)
	}

	if stochastic > 90 && rsi < 10 {
		add(models.RiskFactor{
			Code:        models.FactorPostCrashRecovery,
			Severity:    models.SeverityHigh,
			Description: "stochastic extreme with depressed RSI after a sharp fall",
			Opportunity: "possible early recovery, high uncertainty",
		}, 25)
	}

	if stochastic < 10 && rsi > 90 {
		add(models.RiskFactor{
			Code:        models.FactorOverboughtConsolidation,
			Severity:    models.SeverityMedium,
			Description: "overbought RSI consolidating against a weak stochastic",
		}, 15)
	}

	// Inactivity band (exclusive)
	switch {
	case daysSinceTrade > 30:
		add(models.RiskFactor{
			Code:        models.FactorInactiveFund,
			Severity:    models.SeverityHigh,
			Description: "no trades recorded for over 30 days",
			Action:      "check whether the fund is still open to investors",
		}, 30)
	case daysSinceTrade > 14:
		add(models.RiskFactor{
			Code:        models.FactorLowActivity,
			Severity:    models.SeverityMedium,
			Description: "fewer than one trade in the last two weeks",
		}, 10)
	}

	if investors < 10 {
		add(models.RiskFactor{
			Code:        models.FactorLowInvestorCount,
			Severity:    models.SeverityMedium,
			Description: "fewer than 10 investors hold the fund",
		}, 15)
	}

	return &models.RiskAssessment{
		FCode:            fcode,
		Level:            levelForScore(score),
		Score:            score,
		Factors:          factors,
		Tradeable:        score < tradeableCeiling,
		RequiresResearch: score >= researchThreshold,
	}
}

// Unknown returns the assessment used when a fund has no indicator row.
func Unknown(fcode string) *models.RiskAssessment {
	return &models.RiskAssessment{
		FCode:     fcode,
		Level:     models.RiskUnknown,
		Score:     0,
		Tradeable: true,
	}
}

func levelForScore(score int) models.RiskLevel {
	switch {
	case score >= extremeThreshold:
		return models.RiskExtreme
	case score >= highThreshold:
		return models.RiskHigh
	case score >= mediumThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

var _ interfaces.RiskScorer = (*Scorer)(nil)
