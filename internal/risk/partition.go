package risk

import "github.com/fonradar/fonradar/internal/models"

// Partition splits scored candidates into the allowed/warned/blocked triple.
// The split is stable with respect to input order. LOW and MEDIUM go to
// allowed; HIGH and UNKNOWN go to both allowed and warned (surfaced but
// flagged); EXTREME goes only to blocked.
func Partition(items []models.ResultItem) *models.PartitionedResults {
	out := &models.PartitionedResults{
		Allowed: []models.ResultItem{},
		Warned:  []models.ResultItem{},
		Blocked: []models.ResultItem{},
	}

	for _, item := range items {
		level := models.RiskUnknown
		if item.Risk != nil {
			level = item.Risk.Level
		}

		switch level {
		case models.RiskExtreme:
			out.Blocked = append(out.Blocked, item)
		case models.RiskHigh, models.RiskUnknown:
			out.Allowed = append(out.Allowed, item)
			out.Warned = append(out.Warned, item)
		default:
			out.Allowed = append(out.Allowed, item)
		}
	}

	return out
}
