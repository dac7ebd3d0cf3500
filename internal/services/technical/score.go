package technical

import "github.com/fonradar/fonradar/internal/models"

// combinedScore sums four sub-scores. Positive is bullish.
func combinedScore(row *models.IndicatorRow) int {
	return rsiScore(row.RSI14) + macdScore(row.MACDLine) +
		bollingerScore(row.BBPosition) + smaScore(row)
}

// rsiScore: deep oversold +4, oversold +2, overbought -2, deep overbought -4.
func rsiScore(rsi float64) int {
	switch {
	case rsi < 20:
		return 4
	case rsi < 30:
		return 2
	case rsi > 80:
		return -4
	case rsi > 70:
		return -2
	default:
		return 0
	}
}

// macdScore: sign times magnitude band. Fund-price MACD lines live near zero,
// so 0.5 marks a strong move.
func macdScore(macd float64) int {
	switch {
	case macd > 0.5:
		return 2
	case macd > 0:
		return 1
	case macd < -0.5:
		return -2
	case macd < 0:
		return -1
	default:
		return 0
	}
}

// bollingerScore: near the lower band is a buy zone, near the upper a sell.
func bollingerScore(bb float64) int {
	switch {
	case bb < 0.2:
		return 2
	case bb < 0.3:
		return 1
	case bb > 0.8:
		return -2
	case bb > 0.7:
		return -1
	default:
		return 0
	}
}

// smaScore: trend alignment of price, SMA20, and SMA50.
func smaScore(row *models.IndicatorRow) int {
	if row.SMA20 == 0 || row.SMA50 == 0 {
		return 0
	}
	switch {
	case row.SMA20 > row.SMA50 && row.CurrentPrice > row.SMA20:
		return 2
	case row.SMA20 > row.SMA50:
		return 1
	case row.SMA20 < row.SMA50 && row.CurrentPrice < row.SMA20:
		return -2
	case row.SMA20 < row.SMA50:
		return -1
	default:
		return 0
	}
}

func signalWord(score int) string {
	switch {
	case score >= strongSignalFloor:
		return "GÜÇLÜ AL"
	case score > 0:
		return "AL"
	case score <= -strongSignalFloor:
		return "GÜÇLÜ SAT"
	case score < 0:
		return "SAT"
	default:
		return "NÖTR"
	}
}
