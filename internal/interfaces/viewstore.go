// Package interfaces defines service contracts for fonradar
package interfaces

import (
	"context"

	"github.com/fonradar/fonradar/internal/models"
)

// ViewStore provides read-only access to the precomputed materialized views.
// Every call is a potential blocking I/O point; implementations enforce
// per-query timeouts and honor the limit arguments (limit <= 0 means the
// store default, never unbounded).
type ViewStore interface {
	// PerformanceMetrics reads mv_fund_performance_metrics.
	PerformanceMetrics(ctx context.Context, limit int) ([]models.PerformanceRow, error)

	// PerformanceMetricsFor reads performance rows for specific codes.
	PerformanceMetricsFor(ctx context.Context, codes []string) ([]models.PerformanceRow, error)

	// TechnicalIndicators reads mv_fund_technical_indicators.
	TechnicalIndicators(ctx context.Context, limit int) ([]models.IndicatorRow, error)

	// TechnicalIndicatorsFor reads indicator rows for specific codes.
	TechnicalIndicatorsFor(ctx context.Context, codes []string) ([]models.IndicatorRow, error)

	// PeriodPerformance reads mv_fund_period_performance.
	PeriodPerformance(ctx context.Context, limit int) ([]models.PeriodRow, error)

	// LatestFundData reads mv_latest_fund_data (code + title pairs).
	LatestFundData(ctx context.Context) ([]models.FundTitle, error)

	// ScenarioFunds reads mv_scenario_analysis_funds.
	ScenarioFunds(ctx context.Context, limit int) ([]models.ScenarioRow, error)

	// PriceHistory returns up to days of (date, price) points, newest last.
	PriceHistory(ctx context.Context, fcode string, days int) ([]models.PricePoint, error)

	// FundDetails returns descriptive metadata for one fund.
	FundDetails(ctx context.Context, fcode string) (*models.FundDetails, error)

	// AllFundCodes returns the canonical fund code universe.
	AllFundCodes(ctx context.Context) ([]string, error)

	// RefreshViews re-materializes the mv_* views from base data, where the
	// backend supports it. A no-op otherwise.
	RefreshViews(ctx context.Context) error

	Close() error
}
