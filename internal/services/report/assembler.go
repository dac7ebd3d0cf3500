// Package report assembles partitioned analyzer results into the uniform
// text report shape shared by every analyzer.
package report

import (
	"fmt"
	"strings"

	"github.com/fonradar/fonradar/internal/common"
	"github.com/fonradar/fonradar/internal/models"
)

const separator = "══════════════════════════════════════════════════"

// NoCandidates is the stable wording emitted when primary query and fallback
// both produced nothing.
const NoCandidates = "Kriterlere uygun fon bulunamadı."

// DefaultTopK caps the allowed list when the question carries no count.
const DefaultTopK = 10

// Build renders a partitioned result set as plain text. The output is
// deterministic for the same input: header, stats block, ranked allowed list
// with risk glyphs, optional warned and blocked sections, closing statistics.
func Build(meta models.ReportMeta, parts *models.PartitionedResults) string {
	if parts == nil || parts.Total() == 0 {
		return emptyReport(meta)
	}

	topK := meta.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	var b strings.Builder
	b.WriteString(meta.Title)
	b.WriteString("\n")
	b.WriteString(separator)
	b.WriteString("\n\n")

	writeStats(&b, parts)

	listed := parts.Allowed
	if len(listed) > topK {
		listed = listed[:topK]
	}
	for i, item := range listed {
		fmt.Fprintf(&b, "%2d. %s %s", i+1, item.Risk.Level.Glyph(), item.Code)
		if item.Name != "" {
			b.WriteString(" - ")
			b.WriteString(item.Name)
		}
		if item.Estimate {
			b.WriteString(" (tahmini)")
		}
		b.WriteString("\n")
		if item.Line != "" {
			b.WriteString("    ")
			b.WriteString(item.Line)
			b.WriteString("\n")
		}
	}

	writeWarned(&b, parts.Warned)
	writeBlocked(&b, parts.Blocked)
	writeClosing(&b, meta, parts)

	return b.String()
}

func emptyReport(meta models.ReportMeta) string {
	var b strings.Builder
	b.WriteString(meta.Title)
	b.WriteString("\n")
	b.WriteString(separator)
	b.WriteString("\n\n")
	b.WriteString(NoCandidates)
	b.WriteString("\n")
	return b.String()
}

// writeStats emits the total|allowed|warned|blocked line and the allowed-list
// metric average.
func writeStats(b *strings.Builder, parts *models.PartitionedResults) {
	fmt.Fprintf(b, "Toplam: %d | Uygun: %d | Uyarılı: %d | Engellenen: %d\n",
		parts.Total(), len(parts.Allowed), len(parts.Warned), len(parts.Blocked))

	if len(parts.Allowed) > 0 {
		sum := 0.0
		for _, item := range parts.Allowed {
			sum += item.PrimaryMetric
		}
		label := parts.Allowed[0].MetricLabel
		if label == "" {
			label = "değer"
		}
		fmt.Fprintf(b, "Ortalama %s: %s\n", label, common.FormatRatio(sum/float64(len(parts.Allowed))))
	}
	b.WriteString("\n")
}

func writeWarned(b *strings.Builder, warned []models.ResultItem) {
	if len(warned) == 0 {
		return
	}
	fmt.Fprintf(b, "\n⚠️ Dikkat gerektiren fonlar (%d):\n", len(warned))
	for _, item := range warned {
		fmt.Fprintf(b, "   %s %s", item.Risk.Level.Glyph(), item.Code)
		if reason := topFactor(item.Risk); reason != "" {
			b.WriteString(": ")
			b.WriteString(reason)
		}
		b.WriteString("\n")
	}
}

func writeBlocked(b *strings.Builder, blocked []models.ResultItem) {
	if len(blocked) == 0 {
		return
	}
	fmt.Fprintf(b, "\n🚫 Yüksek risk nedeniyle hariç tutulanlar (%d):\n", len(blocked))
	for _, item := range blocked {
		fmt.Fprintf(b, "   %s %s (risk puanı %d)", item.Risk.Level.Glyph(), item.Code, item.Risk.Score)
		if reason := topFactor(item.Risk); reason != "" {
			b.WriteString(": ")
			b.WriteString(reason)
		}
		b.WriteString("\n")
	}
}

func writeClosing(b *strings.Builder, meta models.ReportMeta, parts *models.PartitionedResults) {
	b.WriteString("\n")
	fmt.Fprintf(b, "%d fon tarandı: %d uygun, %d uyarılı, %d engellendi.\n",
		parts.Total(), len(parts.Allowed), len(parts.Warned), len(parts.Blocked))
	if meta.UsedFallback {
		b.WriteString("Not: birincil sorgu sonuç vermedi, yedek sorgu kullanıldı.\n")
	}
	if meta.Footnote != "" {
		b.WriteString(meta.Footnote)
		b.WriteString("\n")
	}
}

// topFactor returns the first factor description of an assessment.
func topFactor(risk *models.RiskAssessment) string {
	if risk == nil || len(risk.Factors) == 0 {
		return ""
	}
	return risk.Factors[0].Description
}
