// Package question parses free-form fund questions into a structured
// analysis: normalized text, resolved fund codes, question type, intent,
// keyword categories, and numeric parameters.
package question

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/fonradar/fonradar/internal/interfaces"
	"github.com/fonradar/fonradar/internal/models"
)

// Analyzer is a pure, idempotent question parser bound to the canonical
// fund code universe loaded at startup.
type Analyzer struct {
	canonical map[string]struct{}
	sorted    []string
}

// NewAnalyzer creates an analyzer over the canonical code set. Codes are
// uppercased; the set is never mutated afterwards.
func NewAnalyzer(codes []string) *Analyzer {
	canonical := make(map[string]struct{}, len(codes))
	sorted := make([]string, 0, len(codes))
	for _, c := range codes {
		u := strings.ToUpper(c)
		if _, ok := canonical[u]; ok {
			continue
		}
		canonical[u] = struct{}{}
		sorted = append(sorted, u)
	}
	sort.Strings(sorted)
	return &Analyzer{canonical: canonical, sorted: sorted}
}

// CanonicalCodes returns the sorted canonical code universe.
func (a *Analyzer) CanonicalCodes() []string {
	out := make([]string, len(a.sorted))
	copy(out, a.sorted)
	return out
}

// Markers that flip a single- or two-code question into multi_fund.
var listingMarkers = []string{"fonlar", "hangileri", "listele"}

// Markers that make a two-code question a comparison.
var comparisonMarkers = []string{"karşılaştır", "vs", "karşı", "fark"}

// Intent trigger bags, in declaration order. Ties break toward the earlier
// intent; zero matches defaults to analyze.
var intentBags = []struct {
	intent   models.Intent
	triggers []string
}{
	{models.IntentAnalyze, []string{"analiz", "incele", "performans", "durum", "değerlendir"}},
	{models.IntentCompare, []string{"karşılaştır", "kıyasla", "hangisi daha"}},
	{models.IntentList, []string{"listele", "sırala", "göster"}},
	{models.IntentRecommend, []string{"öner", "tavsiye"}},
	{models.IntentPredict, []string{"tahmin", "gelecek", "beklenti"}},
	{models.IntentRisk, []string{"risk", "güvenli", "kayıp", "volatilite"}},
	// rsı and bollınger are what uppercase RSI and BOLLINGER fold to.
	{models.IntentTechnical, []string{"teknik", "macd", "rsi", "rsı", "bollinger", "bollınger", "sinyal", "stokastik", "gösterge"}},
	{models.IntentScenario, []string{"senaryo", "enflasyon", "olursa", "korur"}},
}

// Keyword category token bags. A category is present iff any token is a
// substring of the normalized text. The time category is pattern-based and
// handled separately.
var keywordBags = []struct {
	category string
	tokens   []string
}{
	{models.KeywordCurrency, []string{"dolar", "euro", "usd", "eur", "döviz"}},
	{models.KeywordGold, []string{"altın", "gümüş", "kıymetli maden", "ons"}},
	{models.KeywordEquity, []string{"hisse", "borsa", "bist", "bıst", "endeks"}},
	{models.KeywordBond, []string{"tahvil", "bono", "borçlanma"}},
	{models.KeywordMoneyMarket, []string{"para piyasası", "likit", "repo", "mevduat"}},
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	countRe      = regexp.MustCompile(`(\d+)\s*(fon|tane|adet)`)
	percentRe    = regexp.MustCompile(`%\s*(\d+)|(\d+)\s*%`)
	amountRe     = regexp.MustCompile(`\d{5,}`)
	daysRe       = regexp.MustCompile(`(\d+)\s*(gün|hafta|ay|yıl)`)
)

// Analyze parses a question. Analyzing the same text twice yields
// structurally equal results.
func (a *Analyzer) Analyze(text string) *models.QuestionAnalysis {
	normalized := Normalize(text)

	codes, candidates := a.extractCodes(normalized)

	qa := &models.QuestionAnalysis{
		Original:   text,
		Normalized: normalized,
		FundCodes:  codes,
		Candidates: candidates,
		Keywords:   map[string][]string{},
	}

	qa.Type = classifyType(normalized, len(codes))
	qa.Intent = detectIntent(normalized)
	a.extractKeywords(normalized, qa)
	a.extractParameters(normalized, qa)
	qa.Parameters.FundCodes = codes

	return qa
}

// Normalize lowercases with the Turkish I mapping, collapses whitespace
// runs, and trims. Other diacritics are preserved.
func Normalize(text string) string {
	lowered := strings.Map(lowerTurkish, text)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(lowered, " "))
}

// lowerTurkish maps the two uppercase I forms the way Turkish does: dotless
// I to ı, dotted İ to i. The plain mapping would fold "ALTIN" to "altin" and
// miss every dotless-ı keyword.
func lowerTurkish(r rune) rune {
	switch r {
	case 'I':
		return 'ı'
	case 'İ':
		return 'i'
	default:
		return unicode.ToLower(r)
	}
}

// extractCodes scans three-letter alphabetic tokens, resolving each against
// the canonical set directly and then fuzzily (Levenshtein distance <= 1).
// Unresolved tokens that immediately precede a word starting with "fon" are
// recorded as candidates for parse-failure reporting.
func (a *Analyzer) extractCodes(normalized string) (codes, candidates []string) {
	tokens := strings.Fields(normalized)
	seen := make(map[string]struct{})

	codes = []string{}
	candidates = []string{}

	for i, tok := range tokens {
		word := strings.Trim(tok, ".,;:!?'\"()")
		if !isAlpha3(word) {
			continue
		}
		upper := strings.ToUpper(word)

		// Exact canonical matches win even for stopword-shaped tokens.
		if _, ok := a.canonical[upper]; ok {
			if _, dup := seen[upper]; !dup {
				seen[upper] = struct{}{}
				codes = append(codes, upper)
			}
			continue
		}

		// Common three-letter Turkish words never fuzzy-match into codes.
		if _, stop := stopwords[word]; stop {
			continue
		}

		if resolved, ok := a.fuzzyLookup(upper); ok {
			if _, dup := seen[resolved]; !dup {
				seen[resolved] = struct{}{}
				codes = append(codes, resolved)
			}
			continue
		}

		if i+1 < len(tokens) && strings.HasPrefix(tokens[i+1], "fon") {
			candidates = append(candidates, upper)
		}
	}
	return codes, candidates
}

// stopwords are everyday three-letter words excluded from fuzzy code
// matching. An exact canonical match still resolves.
var stopwords = map[string]struct{}{
	"fon": {}, "ile": {}, "bir": {}, "ama": {}, "hem": {},
	"her": {}, "net": {}, "son": {}, "var": {}, "yok": {}, "iyi": {},
}

func classifyType(normalized string, codeCount int) models.QuestionType {
	switch {
	case codeCount == 0:
		return models.QuestionGeneral
	case codeCount == 1:
		if containsAny(normalized, listingMarkers) {
			return models.QuestionMultiFund
		}
		return models.QuestionSingleFund
	case codeCount == 2:
		if containsAny(normalized, comparisonMarkers) {
			return models.QuestionComparison
		}
		return models.QuestionMultiFund
	default:
		return models.QuestionMultiFund
	}
}

func detectIntent(normalized string) models.Intent {
	best := models.IntentAnalyze
	bestCount := 0
	for _, bag := range intentBags {
		count := 0
		for _, trigger := range bag.triggers {
			if strings.Contains(normalized, trigger) {
				count++
			}
		}
		if count > bestCount {
			best = bag.intent
			bestCount = count
		}
	}
	return best
}

func (a *Analyzer) extractKeywords(normalized string, qa *models.QuestionAnalysis) {
	for _, bag := range keywordBags {
		var matched []string
		for _, tok := range bag.tokens {
			if strings.Contains(normalized, tok) {
				matched = append(matched, tok)
			}
		}
		if len(matched) > 0 {
			qa.Keywords[bag.category] = matched
		}
	}

	// Time is pattern-based: "<integer> gün|hafta|ay|yıl".
	if m := daysRe.FindStringSubmatch(normalized); m != nil {
		qa.Keywords[models.KeywordTime] = []string{m[0]}
	}
}

func (a *Analyzer) extractParameters(normalized string, qa *models.QuestionAnalysis) {
	if m := countRe.FindStringSubmatch(normalized); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			qa.Parameters.RequestedCount = n
		}
	}

	if m := percentRe.FindStringSubmatch(normalized); m != nil {
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		if n, err := strconv.Atoi(digits); err == nil {
			qa.Parameters.Percentage = n
		}
	}

	if m := amountRe.FindString(normalized); m != "" {
		if n, err := strconv.ParseInt(m, 10, 64); err == nil {
			qa.Parameters.Amount = n
		}
	}

	if m := daysRe.FindStringSubmatch(normalized); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			qa.Parameters.Days = n * unitMultiplier(m[2])
		}
	}
}

func unitMultiplier(unit string) int {
	switch unit {
	case "hafta":
		return 7
	case "ay":
		return 30
	case "yıl":
		return 365
	default:
		return 1
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// isAlpha3 accepts three-letter code candidates. Dotless ı counts: it is
// what an uppercase I in a code becomes after normalization.
func isAlpha3(s string) bool {
	runes := []rune(s)
	if len(runes) != 3 {
		return false
	}
	for _, r := range runes {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == 'ı':
		default:
			return false
		}
	}
	return true
}

var _ interfaces.QuestionAnalyzer = (*Analyzer)(nil)
