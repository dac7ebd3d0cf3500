package models

// ResultItem is one scored candidate in an analyzer result set.
// Line is the analyzer's preformatted detail text for the fund; the report
// assembler prepends rank and risk glyph.
type ResultItem struct {
	Code          string          `json:"code"`
	Name          string          `json:"name,omitempty"`
	Risk          *RiskAssessment `json:"risk"`
	PrimaryMetric float64         `json:"primary_metric"`
	MetricLabel   string          `json:"metric_label"`
	Line          string          `json:"line"`
	Estimate      bool            `json:"estimate,omitempty"`
}

// PartitionedResults is the triple every analyzer emits. HIGH-level
// candidates appear in both Allowed and Warned; EXTREME only in Blocked.
type PartitionedResults struct {
	Allowed []ResultItem `json:"allowed"`
	Warned  []ResultItem `json:"warned"`
	Blocked []ResultItem `json:"blocked"`
}

// Total counts distinct candidates across the partition. Warned items are a
// subset of Allowed and are not double counted.
func (p *PartitionedResults) Total() int {
	return len(p.Allowed) + len(p.Blocked)
}

// ReportMeta carries presentation metadata alongside a partitioned result set.
type ReportMeta struct {
	Title        string `json:"title"`
	Method       string `json:"method"`
	TopK         int    `json:"top_k"`
	Footnote     string `json:"footnote,omitempty"`
	UsedFallback bool   `json:"used_fallback,omitempty"`
}
