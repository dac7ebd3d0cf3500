package metrics

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fonradar/fonradar/internal/models"
)

const (
	historyDays      = 120
	minAlignedPoints = 20
	maxPlausibleBeta = 5.0
	tradingDaysYear  = 252
)

// benchmark is the resolved market proxy: its performance row plus daily
// returns keyed by date.
type benchmark struct {
	row     *models.PerformanceRow
	returns map[time.Time]float64
}

// resolveBenchmark tries the configured candidate symbols in order, then
// falls back to the largest equity-heavy fund in the candidate set. Returns
// nil when no benchmark can be resolved; benchmark-relative metrics are then
// skipped or estimated.
func (a *Analyzer) resolveBenchmark(ctx context.Context, rows []models.PerformanceRow) *benchmark {
	byCode := make(map[string]*models.PerformanceRow, len(rows))
	for i := range rows {
		byCode[rows[i].FCode] = &rows[i]
	}

	for _, code := range a.candidates {
		if row, ok := byCode[code]; ok {
			return a.loadBenchmark(ctx, row)
		}
	}

	// Fallback: largest equity fund by reported capacity.
	codes := make([]string, 0, len(rows))
	for _, r := range rows {
		codes = append(codes, r.FCode)
	}
	indicators, err := a.store.TechnicalIndicatorsFor(ctx, codes)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Benchmark fallback lookup failed")
		return nil
	}
	titles, err := a.store.LatestFundData(ctx)
	if err != nil {
		return nil
	}
	// TEFAS titles are registered in uppercase.
	equity := make(map[string]bool, len(titles))
	for _, t := range titles {
		equity[t.FCode] = strings.Contains(t.Title, "HİSSE") || strings.Contains(t.Title, "ENDEKS")
	}

	var best *models.PerformanceRow
	bestCapacity := -1.0
	for i := range indicators {
		ind := &indicators[i]
		if !equity[ind.FCode] {
			continue
		}
		if row, ok := byCode[ind.FCode]; ok && ind.Capacity > bestCapacity {
			best = row
			bestCapacity = ind.Capacity
		}
	}
	if best == nil {
		return nil
	}
	return a.loadBenchmark(ctx, best)
}

func (a *Analyzer) loadBenchmark(ctx context.Context, row *models.PerformanceRow) *benchmark {
	b := &benchmark{row: row}
	history, err := a.store.PriceHistory(ctx, row.FCode, historyDays)
	if err != nil {
		a.logger.Warn().Err(err).Str("fcode", row.FCode).Msg("Benchmark history unavailable")
		return b
	}
	b.returns = dailyReturns(history)
	return b
}

// trueBeta computes Beta from the covariance of fund and benchmark daily
// returns over intersected dates. Rejected when fewer than 20 aligned points
// exist or the result is implausible (|beta| >= 5).
func (a *Analyzer) trueBeta(ctx context.Context, fcode string, bench *benchmark) (float64, bool) {
	if bench == nil || len(bench.returns) == 0 {
		return 0, false
	}
	history, err := a.store.PriceHistory(ctx, fcode, historyDays)
	if err != nil {
		return 0, false
	}

	fund, market := alignReturns(dailyReturns(history), bench.returns)
	if len(fund) < minAlignedPoints {
		return 0, false
	}

	cov := covariance(fund, market)
	varM := variance(market)
	if varM == 0 {
		return 0, false
	}
	beta := cov / varM
	if math.Abs(beta) >= maxPlausibleBeta {
		return 0, false
	}
	return beta, true
}

// trackingError is the annualized standard deviation of the active daily
// return over intersected dates.
func (a *Analyzer) trackingError(ctx context.Context, fcode string, bench *benchmark) (float64, bool) {
	if bench == nil || len(bench.returns) == 0 {
		return 0, false
	}
	history, err := a.store.PriceHistory(ctx, fcode, historyDays)
	if err != nil {
		return 0, false
	}

	fund, market := alignReturns(dailyReturns(history), bench.returns)
	if len(fund) < minAlignedPoints {
		return 0, false
	}

	active := make([]float64, len(fund))
	for i := range fund {
		active[i] = fund[i] - market[i]
	}
	return math.Sqrt(variance(active)) * math.Sqrt(tradingDaysYear), true
}

// betaEstimate is the benchmark-free proxy. A zero-volatility fund maps to 1.
func betaEstimate(row *models.PerformanceRow) float64 {
	if row.AnnualVolatility == 0 {
		return 1.0
	}
	return (row.AnnualVolatility / referenceVolatility) * (1 + (row.AnnualReturn - riskFreeRate))
}

// jensenAlpha is the Jensen formula at a 15% risk-free rate.
func jensenAlpha(fundReturn, benchReturn, beta float64) float64 {
	return fundReturn - (riskFreeRate + beta*(benchReturn-riskFreeRate))
}

// dailyReturns converts a dated price series to date-keyed simple returns.
func dailyReturns(points []models.PricePoint) map[time.Time]float64 {
	out := make(map[time.Time]float64)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Price
		if prev == 0 {
			continue
		}
		day := points[i].Date.Truncate(24 * time.Hour)
		out[day] = points[i].Price/prev - 1
	}
	return out
}

// alignReturns intersects two date-keyed return series into parallel slices
// ordered by date.
func alignReturns(fund, market map[time.Time]float64) (f, m []float64) {
	dates := make([]time.Time, 0, len(fund))
	for d := range fund {
		if _, ok := market[d]; ok {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for _, d := range dates {
		f = append(f, fund[d])
		m = append(m, market[d])
	}
	return f, m
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	sum := 0.0
	for _, x := range xs {
		sum += (x - mu) * (x - mu)
	}
	return sum / float64(len(xs)-1)
}

func covariance(xs, ys []float64) float64 {
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	sum := 0.0
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	return sum / float64(len(xs)-1)
}

