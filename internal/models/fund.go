// Package models defines the data model for the fund query engine
package models

import "time"

// IndicatorRow is one fund's snapshot from the technical-indicators view.
type IndicatorRow struct {
	FCode              string  `json:"fcode"`
	CurrentPrice       float64 `json:"current_price"`
	SMA10              float64 `json:"sma_10"`
	SMA20              float64 `json:"sma_20"`
	SMA50              float64 `json:"sma_50"`
	BBUpper            float64 `json:"bb_upper"`
	BBLower            float64 `json:"bb_lower"`
	BBPosition         float64 `json:"bb_position"` // 0=lower band, 1=upper band
	MACDLine           float64 `json:"macd_line"`
	RSI14              float64 `json:"rsi_14"`
	Stochastic14       float64 `json:"stochastic_14"`
	PriceVsSMA20       float64 `json:"price_vs_sma20"` // percent, signed
	DaysSinceLastTrade int     `json:"days_since_last_trade"`
	DataPoints         int     `json:"data_points"`
	InvestorCount      int     `json:"investorcount"`
	Capacity           float64 `json:"fcapacity"`
}

// PerformanceRow is one fund's snapshot from the performance-metrics view.
// SharpeRatio and CalmarRatio are nullable in the view.
type PerformanceRow struct {
	FCode            string   `json:"fcode"`
	CurrentPrice     float64  `json:"current_price"`
	AnnualReturn     float64  `json:"annual_return"`
	AnnualVolatility float64  `json:"annual_volatility"`
	SharpeRatio      *float64 `json:"sharpe_ratio,omitempty"`
	CalmarRatio      *float64 `json:"calmar_ratio_approx,omitempty"`
	WinRate          float64  `json:"win_rate"` // [0,1]
	WorstDailyReturn float64  `json:"worst_daily_return"`
	BestDailyReturn  float64  `json:"best_daily_return"`
	TradingDays      int      `json:"trading_days"`
}

// PeriodRow is one fund's snapshot from the period-performance view.
type PeriodRow struct {
	FCode        string  `json:"fcode"`
	Return30D    float64 `json:"return_30d"`
	Return90D    float64 `json:"return_90d"`
	Volatility30 float64 `json:"volatility_30d"`
	SharpeApprox float64 `json:"sharpe_ratio_approx"`
}

// FundTitle pairs a fund code with its registered title.
type FundTitle struct {
	FCode string `json:"fcode"`
	Title string `json:"ftitle"`
}

// Inflation-protection categories used by the scenario-analysis view.
const (
	ProtectionGold        = "ALTIN_AGIRLIKLI"
	ProtectionEquity      = "HISSE_AGIRLIKLI"
	ProtectionFX          = "DOVIZ_AGIRLIKLI"
	ProtectionParticipate = "KATILIM_FONU"
	ProtectionMixed       = "KARMA_KORUMA"
	ProtectionBond        = "TAHVIL_AGIRLIKLI"
	ProtectionOther       = "DIGER"
)

// ScenarioRow is one fund's row from the inflation-protection scenario view.
type ScenarioRow struct {
	FCode              string  `json:"fcode"`
	Title              string  `json:"ftitle"`
	ProtectionCategory string  `json:"protection_category"`
	AnnualReturn       float64 `json:"annual_return"`
	AnnualVolatility   float64 `json:"annual_volatility"`
	ProtectionScore    float64 `json:"protection_score"`
}

// PricePoint is a single dated price observation.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// FundDetails holds descriptive metadata for a single fund.
type FundDetails struct {
	FCode       string `json:"fcode"`
	Name        string `json:"fund_name"`
	Type        string `json:"fund_type"`
	Category    string `json:"fund_category"`
	Description string `json:"description,omitempty"`
}
