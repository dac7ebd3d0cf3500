package viewstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fonradar/fonradar/internal/common"
	"github.com/fonradar/fonradar/internal/interfaces"
	"github.com/fonradar/fonradar/internal/models"
)

// SQLite reads the precomputed mv_* views from a sqlite database file. Every
// query runs under its own timeout and every candidate read is LIMIT-bounded.
type SQLite struct {
	db      *sql.DB
	timeout time.Duration
	logger  *common.Logger
}

// SQLiteOption configures the sqlite store.
type SQLiteOption func(*SQLite)

// WithQueryTimeout overrides the default per-query timeout.
func WithQueryTimeout(d time.Duration) SQLiteOption {
	return func(s *SQLite) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSQLite opens the database file read-write (RefreshViews rebuilds the
// view tables) and verifies connectivity.
func NewSQLite(path string, logger *common.Logger, opts ...SQLiteOption) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// The modernc driver is single-writer; one connection avoids lock churn.
	db.SetMaxOpenConns(1)

	s := &SQLite{
		db:      db,
		timeout: 10 * time.Second,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database %s: %w", path, err)
	}

	logger.Info().Str("path", path).Dur("timeout", s.timeout).Msg("SQLite view store opened")
	return s, nil
}

func (s *SQLite) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

const performanceColumns = `fcode, current_price, annual_return, annual_volatility,
	sharpe_ratio, calmar_ratio_approx, win_rate, worst_daily_return,
	best_daily_return, trading_days`

// PerformanceMetrics implements interfaces.ViewStore.
func (s *SQLite) PerformanceMetrics(ctx context.Context, limit int) ([]models.PerformanceRow, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM mv_fund_performance_metrics
		ORDER BY annual_return DESC LIMIT ?`, performanceColumns)
	rows, err := s.db.QueryContext(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, &models.ViewStoreError{View: "mv_fund_performance_metrics", Err: err}
	}
	defer rows.Close()
	return scanPerformance(rows)
}

// PerformanceMetricsFor implements interfaces.ViewStore.
func (s *SQLite) PerformanceMetricsFor(ctx context.Context, codes []string) ([]models.PerformanceRow, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM mv_fund_performance_metrics
		WHERE fcode IN (%s) LIMIT ?`, performanceColumns, placeholders(len(codes)))
	rows, err := s.db.QueryContext(ctx, query, append(codeArgs(codes), DefaultLimit)...)
	if err != nil {
		return nil, &models.ViewStoreError{View: "mv_fund_performance_metrics", Err: err}
	}
	defer rows.Close()
	return scanPerformance(rows)
}

func scanPerformance(rows *sql.Rows) ([]models.PerformanceRow, error) {
	var out []models.PerformanceRow
	for rows.Next() {
		var r models.PerformanceRow
		var sharpe, calmar sql.NullFloat64
		if err := rows.Scan(&r.FCode, &r.CurrentPrice, &r.AnnualReturn, &r.AnnualVolatility,
			&sharpe, &calmar, &r.WinRate, &r.WorstDailyReturn, &r.BestDailyReturn, &r.TradingDays); err != nil {
			return nil, &models.ViewStoreError{View: "mv_fund_performance_metrics", Err: err}
		}
		if sharpe.Valid {
			v := sharpe.Float64
			r.SharpeRatio = &v
		}
		if calmar.Valid {
			v := calmar.Float64
			r.CalmarRatio = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.ViewStoreError{View: "mv_fund_performance_metrics", Err: err}
	}
	return out, nil
}

const indicatorColumns = `fcode, current_price, sma_10, sma_20, sma_50,
	bb_upper, bb_lower, bb_position, macd_line, rsi_14, stochastic_14,
	price_vs_sma20, days_since_last_trade, data_points, investorcount, fcapacity`

// TechnicalIndicators implements interfaces.ViewStore.
func (s *SQLite) TechnicalIndicators(ctx context.Context, limit int) ([]models.IndicatorRow, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM mv_fund_technical_indicators
		ORDER BY fcode LIMIT ?`, indicatorColumns)
	rows, err := s.db.QueryContext(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, &models.ViewStoreError{View: "mv_fund_technical_indicators", Err: err}
	}
	defer rows.Close()
	return scanIndicators(rows)
}

// TechnicalIndicatorsFor implements interfaces.ViewStore.
func (s *SQLite) TechnicalIndicatorsFor(ctx context.Context, codes []string) ([]models.IndicatorRow, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM mv_fund_technical_indicators
		WHERE fcode IN (%s) LIMIT ?`, indicatorColumns, placeholders(len(codes)))
	rows, err := s.db.QueryContext(ctx, query, append(codeArgs(codes), DefaultLimit)...)
	if err != nil {
		return nil, &models.ViewStoreError{View: "mv_fund_technical_indicators", Err: err}
	}
	defer rows.Close()
	return scanIndicators(rows)
}

func scanIndicators(rows *sql.Rows) ([]models.IndicatorRow, error) {
	var out []models.IndicatorRow
	for rows.Next() {
		var r models.IndicatorRow
		if err := rows.Scan(&r.FCode, &r.CurrentPrice, &r.SMA10, &r.SMA20, &r.SMA50,
			&r.BBUpper, &r.BBLower, &r.BBPosition, &r.MACDLine, &r.RSI14, &r.Stochastic14,
			&r.PriceVsSMA20, &r.DaysSinceLastTrade, &r.DataPoints, &r.InvestorCount, &r.Capacity); err != nil {
			return nil, &models.ViewStoreError{View: "mv_fund_technical_indicators", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.ViewStoreError{View: "mv_fund_technical_indicators", Err: err}
	}
	return out, nil
}

// PeriodPerformance implements interfaces.ViewStore.
func (s *SQLite) PeriodPerformance(ctx context.Context, limit int) ([]models.PeriodRow, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT fcode, return_30d, return_90d, volatility_30d, sharpe_ratio_approx
		 FROM mv_fund_period_performance ORDER BY return_30d DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, &models.ViewStoreError{View: "mv_fund_period_performance", Err: err}
	}
	defer rows.Close()

	var out []models.PeriodRow
	for rows.Next() {
		var r models.PeriodRow
		if err := rows.Scan(&r.FCode, &r.Return30D, &r.Return90D, &r.Volatility30, &r.SharpeApprox); err != nil {
			return nil, &models.ViewStoreError{View: "mv_fund_period_performance", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.ViewStoreError{View: "mv_fund_period_performance", Err: err}
	}
	return out, nil
}

// LatestFundData implements interfaces.ViewStore.
func (s *SQLite) LatestFundData(ctx context.Context) ([]models.FundTitle, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT fcode, ftitle FROM mv_latest_fund_data ORDER BY fcode`)
	if err != nil {
		return nil, &models.ViewStoreError{View: "mv_latest_fund_data", Err: err}
	}
	defer rows.Close()

	var out []models.FundTitle
	for rows.Next() {
		var t models.FundTitle
		if err := rows.Scan(&t.FCode, &t.Title); err != nil {
			return nil, &models.ViewStoreError{View: "mv_latest_fund_data", Err: err}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.ViewStoreError{View: "mv_latest_fund_data", Err: err}
	}
	return out, nil
}

// ScenarioFunds implements interfaces.ViewStore.
func (s *SQLite) ScenarioFunds(ctx context.Context, limit int) ([]models.ScenarioRow, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT fcode, ftitle, protection_category, annual_return, annual_volatility, protection_score
		 FROM mv_scenario_analysis_funds ORDER BY protection_score DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, &models.ViewStoreError{View: "mv_scenario_analysis_funds", Err: err}
	}
	defer rows.Close()

	var out []models.ScenarioRow
	for rows.Next() {
		var r models.ScenarioRow
		if err := rows.Scan(&r.FCode, &r.Title, &r.ProtectionCategory,
			&r.AnnualReturn, &r.AnnualVolatility, &r.ProtectionScore); err != nil {
			return nil, &models.ViewStoreError{View: "mv_scenario_analysis_funds", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.ViewStoreError{View: "mv_scenario_analysis_funds", Err: err}
	}
	return out, nil
}

// PriceHistory implements interfaces.ViewStore. Points come back oldest
// first so return computations read naturally.
func (s *SQLite) PriceHistory(ctx context.Context, fcode string, days int) ([]models.PricePoint, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if days <= 0 {
		days = 120
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT pdate, price FROM (
		   SELECT pdate, price FROM fund_prices
		   WHERE fcode = ? ORDER BY pdate DESC LIMIT ?
		 ) ORDER BY pdate ASC`, strings.ToUpper(fcode), days)
	if err != nil {
		return nil, &models.ViewStoreError{View: "price_history", Err: err}
	}
	defer rows.Close()

	var out []models.PricePoint
	for rows.Next() {
		var dateStr string
		var p models.PricePoint
		if err := rows.Scan(&dateStr, &p.Price); err != nil {
			return nil, &models.ViewStoreError{View: "price_history", Err: err}
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			s.logger.Warn().Str("fcode", fcode).Str("pdate", dateStr).Msg("Unparseable price date, skipping point")
			continue
		}
		p.Date = date
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.ViewStoreError{View: "price_history", Err: err}
	}
	return out, nil
}

// FundDetails implements interfaces.ViewStore.
func (s *SQLite) FundDetails(ctx context.Context, fcode string) (*models.FundDetails, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var d models.FundDetails
	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT fcode, fund_name, fund_type, fund_category, description
		 FROM fund_details WHERE fcode = ?`, strings.ToUpper(fcode)).
		Scan(&d.FCode, &d.Name, &d.Type, &d.Category, &description)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, &models.ViewStoreError{View: "fund_details", Err: err}
	}
	d.Description = description.String
	return &d, nil
}

// AllFundCodes implements interfaces.ViewStore. Unlike candidate reads this
// is intentionally unbounded: the canonical universe is loaded once at
// startup for fund-code recognition.
func (s *SQLite) AllFundCodes(ctx context.Context) ([]string, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT fcode FROM mv_latest_fund_data ORDER BY fcode`)
	if err != nil {
		return nil, &models.ViewStoreError{View: "mv_latest_fund_data", Err: err}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, &models.ViewStoreError{View: "mv_latest_fund_data", Err: err}
		}
		out = append(out, strings.ToUpper(code))
	}
	if err := rows.Err(); err != nil {
		return nil, &models.ViewStoreError{View: "mv_latest_fund_data", Err: err}
	}
	return out, nil
}

// refreshStatements rebuild each mv_* table from base data. Sqlite has no
// materialized views, so the mv_* relations are plain tables repopulated
// from the refresh_* views shipped with the database.
var refreshStatements = []struct {
	view string
	stmt string
}{
	{"mv_fund_performance_metrics", `DELETE FROM mv_fund_performance_metrics;
		INSERT INTO mv_fund_performance_metrics SELECT * FROM refresh_fund_performance_metrics`},
	{"mv_fund_technical_indicators", `DELETE FROM mv_fund_technical_indicators;
		INSERT INTO mv_fund_technical_indicators SELECT * FROM refresh_fund_technical_indicators`},
	{"mv_fund_period_performance", `DELETE FROM mv_fund_period_performance;
		INSERT INTO mv_fund_period_performance SELECT * FROM refresh_fund_period_performance`},
	{"mv_latest_fund_data", `DELETE FROM mv_latest_fund_data;
		INSERT INTO mv_latest_fund_data SELECT * FROM refresh_latest_fund_data`},
	{"mv_scenario_analysis_funds", `DELETE FROM mv_scenario_analysis_funds;
		INSERT INTO mv_scenario_analysis_funds SELECT * FROM refresh_scenario_analysis_funds`},
}

// RefreshViews implements interfaces.ViewStore. Each view refreshes in its
// own transaction; a failed view is logged and the rest still refresh.
func (s *SQLite) RefreshViews(ctx context.Context) error {
	var failed []string
	for _, r := range refreshStatements {
		if err := s.refreshOne(ctx, r.view, r.stmt); err != nil {
			s.logger.Warn().Err(err).Str("view", r.view).Msg("View refresh failed")
			failed = append(failed, r.view)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to refresh views: %s", strings.Join(failed, ", "))
	}
	s.logger.Info().Int("views", len(refreshStatements)).Msg("Materialized views refreshed")
	return nil
}

func (s *SQLite) refreshOne(ctx context.Context, view, stmt string) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close implements interfaces.ViewStore.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// placeholders returns n comma-joined "?" markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func codeArgs(codes []string) []any {
	args := make([]any, len(codes))
	for i, c := range codes {
		args[i] = strings.ToUpper(c)
	}
	return args
}

var _ interfaces.ViewStore = (*SQLite)(nil)
