package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fonradar/fonradar/internal/models"
)

func item(code string, level models.RiskLevel, score int, metric float64) models.ResultItem {
	risk := &models.RiskAssessment{FCode: code, Level: level, Score: score, Tradeable: score < 50}
	if score > 0 {
		risk.Factors = []models.RiskFactor{{Code: "X", Description: "test factor"}}
	}
	return models.ResultItem{
		Code:          code,
		Risk:          risk,
		PrimaryMetric: metric,
		MetricLabel:   "Sharpe",
		Line:          "Getiri: +10.00%",
	}
}

func TestBuildFullReport(t *testing.T) {
	parts := &models.PartitionedResults{
		Allowed: []models.ResultItem{
			item("AKB", models.RiskLow, 0, 2.0),
			item("YAS", models.RiskHigh, 30, 1.0),
		},
		Warned:  []models.ResultItem{item("YAS", models.RiskHigh, 30, 1.0)},
		Blocked: []models.ResultItem{item("TGE", models.RiskExtreme, 65, 0.5)},
	}
	out := Build(models.ReportMeta{Title: "📊 En İyi Fonlar", TopK: 10}, parts)

	assert.Contains(t, out, "📊 En İyi Fonlar")
	assert.Contains(t, out, "Toplam: 3 | Uygun: 2 | Uyarılı: 1 | Engellenen: 1")
	assert.Contains(t, out, "Ortalama Sharpe: 1.50")
	assert.Contains(t, out, " 1. 🟢 AKB")
	assert.Contains(t, out, " 2. 🟠 YAS")
	assert.Contains(t, out, "⚠️ Dikkat gerektiren fonlar (1):")
	assert.Contains(t, out, "🚫 Yüksek risk nedeniyle hariç tutulanlar (1):")
	assert.Contains(t, out, "🔴 TGE (risk puanı 65)")
	assert.Contains(t, out, "3 fon tarandı: 2 uygun, 1 uyarılı, 1 engellendi.")
}

func TestBuildOmitsEmptySections(t *testing.T) {
	parts := &models.PartitionedResults{
		Allowed: []models.ResultItem{item("AKB", models.RiskLow, 0, 1.0)},
	}
	out := Build(models.ReportMeta{Title: "Rapor"}, parts)

	assert.NotContains(t, out, "⚠️")
	assert.NotContains(t, out, "🚫")
}

func TestBuildTruncatesToTopK(t *testing.T) {
	parts := &models.PartitionedResults{}
	for _, code := range []string{"AAA", "BBB", "CCC", "DDD"} {
		parts.Allowed = append(parts.Allowed, item(code, models.RiskLow, 0, 1.0))
	}
	out := Build(models.ReportMeta{Title: "Rapor", TopK: 2}, parts)

	assert.Contains(t, out, "AAA")
	assert.Contains(t, out, "BBB")
	assert.NotContains(t, out, " 3. ")
	assert.NotContains(t, out, "CCC")
	// Stats still count the full candidate set.
	assert.Contains(t, out, "Toplam: 4")
}

func TestBuildEmptyPartition(t *testing.T) {
	out := Build(models.ReportMeta{Title: "Rapor"}, &models.PartitionedResults{})
	assert.Contains(t, out, NoCandidates)

	out = Build(models.ReportMeta{Title: "Rapor"}, nil)
	assert.Contains(t, out, NoCandidates)
}

func TestBuildFallbackNote(t *testing.T) {
	parts := &models.PartitionedResults{
		Allowed: []models.ResultItem{item("AKB", models.RiskLow, 0, 1.0)},
	}
	out := Build(models.ReportMeta{Title: "Rapor", UsedFallback: true}, parts)
	assert.Contains(t, out, "yedek sorgu kullanıldı")
}

func TestBuildDeterministic(t *testing.T) {
	parts := &models.PartitionedResults{
		Allowed: []models.ResultItem{
			item("AKB", models.RiskLow, 0, 2.0),
			item("YAS", models.RiskMedium, 15, 1.0),
		},
	}
	meta := models.ReportMeta{Title: "Rapor", Footnote: "Veriler gün sonu itibarıyla."}

	first := Build(meta, parts)
	second := Build(meta, parts)
	require.Equal(t, first, second)
	assert.True(t, strings.HasSuffix(first, "Veriler gün sonu itibarıyla.\n"))
}
