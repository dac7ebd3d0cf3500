// Package viewstore provides materialized-view store backends: a sqlite
// implementation for production and an in-memory implementation for tests.
package viewstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fonradar/fonradar/internal/interfaces"
	"github.com/fonradar/fonradar/internal/models"
)

// DefaultLimit bounds every candidate query; no view read ever exceeds it.
const DefaultLimit = 50

// Memory is an in-memory ViewStore. Rows are returned in insertion order.
// FailViews injects an error for a named view, for fallback testing.
type Memory struct {
	mu sync.RWMutex

	Performance []models.PerformanceRow
	Indicators  []models.IndicatorRow
	Periods     []models.PeriodRow
	Titles      []models.FundTitle
	Scenarios   []models.ScenarioRow
	Histories   map[string][]models.PricePoint
	Details     map[string]*models.FundDetails

	FailViews map[string]error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		Histories: make(map[string][]models.PricePoint),
		Details:   make(map[string]*models.FundDetails),
		FailViews: make(map[string]error),
	}
}

func (m *Memory) failure(view string) error {
	if err, ok := m.FailViews[view]; ok {
		return &models.ViewStoreError{View: view, Err: err}
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > DefaultLimit {
		return DefaultLimit
	}
	return limit
}

// PerformanceMetrics returns up to limit performance rows.
func (m *Memory) PerformanceMetrics(ctx context.Context, limit int) ([]models.PerformanceRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("mv_fund_performance_metrics"); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	rows := m.Performance
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]models.PerformanceRow, len(rows))
	copy(out, rows)
	return out, nil
}

// PerformanceMetricsFor returns performance rows for the given codes.
func (m *Memory) PerformanceMetricsFor(ctx context.Context, codes []string) ([]models.PerformanceRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("mv_fund_performance_metrics"); err != nil {
		return nil, err
	}
	want := toSet(codes)
	var out []models.PerformanceRow
	for _, r := range m.Performance {
		if _, ok := want[r.FCode]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// TechnicalIndicators returns up to limit indicator rows.
func (m *Memory) TechnicalIndicators(ctx context.Context, limit int) ([]models.IndicatorRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("mv_fund_technical_indicators"); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	rows := m.Indicators
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]models.IndicatorRow, len(rows))
	copy(out, rows)
	return out, nil
}

// TechnicalIndicatorsFor returns indicator rows for the given codes.
func (m *Memory) TechnicalIndicatorsFor(ctx context.Context, codes []string) ([]models.IndicatorRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("mv_fund_technical_indicators"); err != nil {
		return nil, err
	}
	want := toSet(codes)
	var out []models.IndicatorRow
	for _, r := range m.Indicators {
		if _, ok := want[r.FCode]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// PeriodPerformance returns up to limit period rows.
func (m *Memory) PeriodPerformance(ctx context.Context, limit int) ([]models.PeriodRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("mv_fund_period_performance"); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	rows := m.Periods
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]models.PeriodRow, len(rows))
	copy(out, rows)
	return out, nil
}

// LatestFundData returns all code/title pairs.
func (m *Memory) LatestFundData(ctx context.Context) ([]models.FundTitle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("mv_latest_fund_data"); err != nil {
		return nil, err
	}
	out := make([]models.FundTitle, len(m.Titles))
	copy(out, m.Titles)
	return out, nil
}

// ScenarioFunds returns up to limit scenario rows.
func (m *Memory) ScenarioFunds(ctx context.Context, limit int) ([]models.ScenarioRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("mv_scenario_analysis_funds"); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	rows := m.Scenarios
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]models.ScenarioRow, len(rows))
	copy(out, rows)
	return out, nil
}

// PriceHistory returns up to days points for a fund, oldest first.
func (m *Memory) PriceHistory(ctx context.Context, fcode string, days int) ([]models.PricePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("price_history"); err != nil {
		return nil, err
	}
	points := m.Histories[strings.ToUpper(fcode)]
	if days > 0 && len(points) > days {
		points = points[len(points)-days:]
	}
	out := make([]models.PricePoint, len(points))
	copy(out, points)
	return out, nil
}

// FundDetails returns descriptive metadata for one fund.
func (m *Memory) FundDetails(ctx context.Context, fcode string) (*models.FundDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("fund_details"); err != nil {
		return nil, err
	}
	d, ok := m.Details[strings.ToUpper(fcode)]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

// AllFundCodes returns the sorted canonical code universe, derived from the
// latest-fund-data view.
func (m *Memory) AllFundCodes(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("mv_latest_fund_data"); err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, t := range m.Titles {
		set[strings.ToUpper(t.FCode)] = struct{}{}
	}
	for _, r := range m.Indicators {
		set[strings.ToUpper(r.FCode)] = struct{}{}
	}
	for _, r := range m.Performance {
		set[strings.ToUpper(r.FCode)] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// RefreshViews is a no-op for the in-memory store.
func (m *Memory) RefreshViews(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }

func toSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[strings.ToUpper(c)] = struct{}{}
	}
	return set
}

var _ interfaces.ViewStore = (*Memory)(nil)
