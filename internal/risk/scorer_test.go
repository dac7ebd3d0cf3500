package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fonradar/fonradar/internal/models"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

func hasFactor(a *models.RiskAssessment, code string) bool {
	for _, f := range a.Factors {
		if f.Code == code {
			return true
		}
	}
	return false
}

func TestScorePriceDropBoundaries(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name         string
		priceVsSMA20 float64
		wantFactor   string
		wantWeight   int
	}{
		{"exactly -70 is extreme", -70.0, models.FactorExtremePriceDrop, 50},
		{"below -70 is extreme", -70.001, models.FactorExtremePriceDrop, 50},
		{"-69.999 is significant", -69.999, models.FactorSignificantPriceDrop, 20},
		{"-30 is no factor", -30.0, "", 0},
		{"-30.001 is significant", -30.001, models.FactorSignificantPriceDrop, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := s.Score("AAA", models.RiskInput{PriceVsSMA20: fp(tt.priceVsSMA20)})
			if tt.wantFactor == "" {
				assert.Empty(t, a.Factors)
				return
			}
			require.Len(t, a.Factors, 1)
			assert.Equal(t, tt.wantFactor, a.Factors[0].Code)
			assert.Equal(t, tt.wantWeight, a.Score)
		})
	}
}

func TestScoreInactivityBoundaries(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		days       int
		wantFactor string
	}{
		{31, models.FactorInactiveFund},
		{30, models.FactorLowActivity},
		{15, models.FactorLowActivity},
		{14, ""},
		{0, ""},
	}

	for _, tt := range tests {
		a := s.Score("AAA", models.RiskInput{DaysSinceLastTrade: ip(tt.days), InvestorCount: ip(100)})
		if tt.wantFactor == "" {
			assert.Empty(t, a.Factors, "days=%d", tt.days)
		} else {
			require.Len(t, a.Factors, 1, "days=%d", tt.days)
			assert.Equal(t, tt.wantFactor, a.Factors[0].Code)
		}
	}
}

func TestScorePostCrashRecovery(t *testing.T) {
	s := NewScorer()

	a := s.Score("AAA", models.RiskInput{
		RSI14:         fp(9.9),
		Stochastic14:  fp(90.1),
		InvestorCount: ip(100),
	})
	assert.True(t, hasFactor(a, models.FactorPostCrashRecovery))
	assert.Equal(t, 25, a.Score)
	assert.Equal(t, models.RiskMedium, a.Level)

	// Exact boundary values do not fire
	a = s.Score("AAA", models.RiskInput{
		RSI14:         fp(10),
		Stochastic14:  fp(90),
		InvestorCount: ip(100),
	})
	assert.False(t, hasFactor(a, models.FactorPostCrashRecovery))
}

func TestScoreInvestorCountBoundary(t *testing.T) {
	s := NewScorer()

	a := s.Score("AAA", models.RiskInput{InvestorCount: ip(9)})
	assert.True(t, hasFactor(a, models.FactorLowInvestorCount))

	a = s.Score("AAA", models.RiskInput{InvestorCount: ip(10)})
	assert.False(t, hasFactor(a, models.FactorLowInvestorCount))
}

func TestScoreDefaultsAreNeutral(t *testing.T) {
	s := NewScorer()

	// All fields missing: defaults fire only the low-investor rule
	// (investorcount defaults to 0).
	a := s.Score("AAA", models.RiskInput{})
	require.Len(t, a.Factors, 1)
	assert.Equal(t, models.FactorLowInvestorCount, a.Factors[0].Code)
	assert.Equal(t, 15, a.Score)
	assert.Equal(t, models.RiskMedium, a.Level)
}

func TestScoreLevelDerivation(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name      string
		input     models.RiskInput
		wantLevel models.RiskLevel
		wantScore int
	}{
		{
			name:      "clean fund is LOW",
			input:     models.RiskInput{InvestorCount: ip(100)},
			wantLevel: models.RiskLow,
			wantScore: 0,
		},
		{
			name:      "single medium factor is MEDIUM",
			input:     models.RiskInput{InvestorCount: ip(5)},
			wantLevel: models.RiskMedium,
			wantScore: 15,
		},
		{
			name:      "inactive fund is HIGH",
			input:     models.RiskInput{DaysSinceLastTrade: ip(45), InvestorCount: ip(100)},
			wantLevel: models.RiskHigh,
			wantScore: 30,
		},
		{
			name:      "extreme drop is EXTREME and not tradeable",
			input:     models.RiskInput{PriceVsSMA20: fp(-80), InvestorCount: ip(100)},
			wantLevel: models.RiskExtreme,
			wantScore: 50,
		},
		{
			name: "stacked factors accumulate",
			input: models.RiskInput{
				PriceVsSMA20:       fp(-40),
				DaysSinceLastTrade: ip(20),
				InvestorCount:      ip(5),
			},
			wantLevel: models.RiskHigh,
			wantScore: 45,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := s.Score("AAA", tt.input)
			assert.Equal(t, tt.wantLevel, a.Level)
			assert.Equal(t, tt.wantScore, a.Score)
			assert.Equal(t, a.Score < 50, a.Tradeable)
			assert.Equal(t, a.Score >= 30, a.RequiresResearch)
		})
	}
}

// Adding a factor that was previously false strictly increases the score and
// never decreases the level.
func TestScoreMonotonicity(t *testing.T) {
	s := NewScorer()

	base := models.RiskInput{InvestorCount: ip(100)}
	withDrop := models.RiskInput{InvestorCount: ip(100), PriceVsSMA20: fp(-40)}
	withDropAndInactive := models.RiskInput{InvestorCount: ip(100), PriceVsSMA20: fp(-40), DaysSinceLastTrade: ip(40)}

	order := map[models.RiskLevel]int{
		models.RiskLow: 0, models.RiskMedium: 1, models.RiskHigh: 2, models.RiskExtreme: 3,
	}

	a0 := s.Score("AAA", base)
	a1 := s.Score("AAA", withDrop)
	a2 := s.Score("AAA", withDropAndInactive)

	assert.Greater(t, a1.Score, a0.Score)
	assert.Greater(t, a2.Score, a1.Score)
	assert.GreaterOrEqual(t, order[a1.Level], order[a0.Level])
	assert.GreaterOrEqual(t, order[a2.Level], order[a1.Level])
}

func TestPartition(t *testing.T) {
	mk := func(code string, level models.RiskLevel) models.ResultItem {
		return models.ResultItem{Code: code, Risk: &models.RiskAssessment{FCode: code, Level: level}}
	}

	p := Partition([]models.ResultItem{
		mk("AAA", models.RiskLow),
		mk("BBB", models.RiskHigh),
		mk("CCC", models.RiskExtreme),
		mk("DDD", models.RiskMedium),
		mk("EEE", models.RiskUnknown),
	})

	codes := func(items []models.ResultItem) []string {
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.Code
		}
		return out
	}

	assert.Equal(t, []string{"AAA", "BBB", "DDD", "EEE"}, codes(p.Allowed))
	assert.Equal(t, []string{"BBB", "EEE"}, codes(p.Warned))
	assert.Equal(t, []string{"CCC"}, codes(p.Blocked))

	// EXTREME never appears outside blocked
	for _, it := range p.Allowed {
		assert.NotEqual(t, models.RiskExtreme, it.Risk.Level)
	}
	assert.Equal(t, 5, p.Total())
}
