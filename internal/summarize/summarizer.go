package summarize

import (
	"regexp"
	"sort"
	"strings"
)

// Summary is the content summary produced for one document version.
type Summary struct {
	ExecutiveSummary  string            `json:"executive_summary"`
	KeyPoints         []string          `json:"key_points"`
	MainParties       []string          `json:"main_parties"`
	KeyDates          map[string]string `json:"key_dates"`
	KeyAmounts        map[string]string `json:"key_amounts"`
	ActionItems       []string          `json:"action_items"`
	WordCount         int               `json:"word_count"`
	OriginalWordCount int               `json:"original_word_count"`
	CompressionRatio  float64           `json:"compression_ratio"`
	Confidence        float64           `json:"confidence"`
}

const (
	executiveSentences = 3
	keyPointSentences  = 5
	maxParties         = 10
	maxActionItems     = 10
)

// Summarizer builds extractive summaries by scoring sentences against
// document term frequency. Deterministic for a given input; no model calls.
type Summarizer struct{}

func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

func (s *Summarizer) Summarize(text string) Summary {
	sentences := sentenceSplit(text)
	executive := extractTop(sentences, executiveSentences)
	keyPoints := extractTop(sentences, keyPointSentences)

	executiveText := strings.Join(executive, " ")
	originalWords := len(strings.Fields(text))
	summaryWords := len(strings.Fields(executiveText))

	var compression float64
	if originalWords > 0 {
		compression = float64(summaryWords) / float64(originalWords)
	}

	return Summary{
		ExecutiveSummary:  executiveText,
		KeyPoints:         keyPoints,
		MainParties:       extractParties(text),
		KeyDates:          extractKeyDates(text),
		KeyAmounts:        extractKeyAmounts(text),
		ActionItems:       extractActionItems(sentences),
		WordCount:         summaryWords,
		OriginalWordCount: originalWords,
		CompressionRatio:  round3(compression),
		Confidence:        confidenceScore(originalWords, summaryWords),
	}
}

var sentenceBoundary = regexp.MustCompile(`[.!?]+\s+|\n+`)

func sentenceSplit(text string) []string {
	pieces := sentenceBoundary.Split(text, -1)
	sentences := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		trimmed := strings.TrimSpace(piece)
		if trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "is": true, "are": true,
	"be": true, "by": true, "with": true, "as": true, "at": true, "this": true,
	"that": true, "it": true, "its": true, "shall": true, "will": true,
	"any": true, "all": true, "such": true, "herein": true, "hereby": true,
}

// extractTop scores each sentence by the summed document-wide frequency of
// its non-stopword terms, normalized by sentence length, and returns the top
// n sentences in their original order. Ties resolve to the earlier sentence.
func extractTop(sentences []string, n int) []string {
	if len(sentences) <= n {
		return append([]string(nil), sentences...)
	}

	frequency := make(map[string]int)
	for _, sentence := range sentences {
		for _, word := range termWords(sentence) {
			frequency[word]++
		}
	}

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, 0, len(sentences))
	for i, sentence := range sentences {
		words := termWords(sentence)
		if len(words) == 0 {
			ranked = append(ranked, scored{index: i})
			continue
		}
		var total int
		for _, word := range words {
			total += frequency[word]
		}
		ranked = append(ranked, scored{index: i, score: float64(total) / float64(len(words))})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	selected := make([]int, 0, n)
	for _, entry := range ranked[:n] {
		selected = append(selected, entry.index)
	}
	sort.Ints(selected)

	result := make([]string, 0, n)
	for _, index := range selected {
		result = append(result, sentences[index])
	}
	return result
}

var wordPattern = regexp.MustCompile(`[a-zA-Z]+`)

func termWords(sentence string) []string {
	words := wordPattern.FindAllString(strings.ToLower(sentence), -1)
	filtered := words[:0]
	for _, word := range words {
		if len(word) > 2 && !stopwords[word] {
			filtered = append(filtered, word)
		}
	}
	return filtered
}

// Label matching is case-insensitive but the captured name is not, so the
// capture stops at the end of the proper noun.
var partyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i:buyer|purchaser|vendee):\s*([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`),
	regexp.MustCompile(`(?i:seller|vendor):\s*([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`),
	regexp.MustCompile(`(?i:lender|bank|borrower):\s*([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`),
	regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)\s+\((?i:buyer|seller|lender)\)`),
}

func extractParties(text string) []string {
	seen := make(map[string]bool)
	parties := make([]string, 0)
	for _, pattern := range partyPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(match[1])
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			parties = append(parties, name)
			if len(parties) == maxParties {
				return parties
			}
		}
	}
	return parties
}

var datePatterns = []struct {
	pattern *regexp.Regexp
	key     string
}{
	{regexp.MustCompile(`(?i)closing\s+date:\s*([\d]{1,4}[/-][\d]{1,2}[/-][\d]{2,4})`), "closing_date"},
	{regexp.MustCompile(`(?i)contract\s+date:\s*([\d]{1,4}[/-][\d]{1,2}[/-][\d]{2,4})`), "contract_date"},
	{regexp.MustCompile(`(?i)expiration\s+date:\s*([\d]{1,4}[/-][\d]{1,2}[/-][\d]{2,4})`), "expiration_date"},
	{regexp.MustCompile(`(?i)inspection\s+deadline:\s*([\d]{1,4}[/-][\d]{1,2}[/-][\d]{2,4})`), "inspection_deadline"},
	{regexp.MustCompile(`(?i)effective\s+date:\s*([\d]{1,4}[/-][\d]{1,2}[/-][\d]{2,4})`), "effective_date"},
}

func extractKeyDates(text string) map[string]string {
	dates := make(map[string]string)
	for _, entry := range datePatterns {
		if match := entry.pattern.FindStringSubmatch(text); match != nil {
			dates[entry.key] = match[1]
		}
	}
	return dates
}

var amountPatterns = []struct {
	pattern *regexp.Regexp
	key     string
}{
	{regexp.MustCompile(`(?i)purchase\s+price:\s*\$?([\d,]+(?:\.\d{2})?)`), "purchase_price"},
	{regexp.MustCompile(`(?i)sale\s+price:\s*\$?([\d,]+(?:\.\d{2})?)`), "sale_price"},
	{regexp.MustCompile(`(?i)loan\s+amount:\s*\$?([\d,]+(?:\.\d{2})?)`), "loan_amount"},
	{regexp.MustCompile(`(?i)earnest\s+money:\s*\$?([\d,]+(?:\.\d{2})?)`), "earnest_money"},
	{regexp.MustCompile(`(?i)down\s+payment:\s*\$?([\d,]+(?:\.\d{2})?)`), "down_payment"},
}

func extractKeyAmounts(text string) map[string]string {
	amounts := make(map[string]string)
	for _, entry := range amountPatterns {
		if match := entry.pattern.FindStringSubmatch(text); match != nil {
			amounts[entry.key] = strings.ReplaceAll(match[1], ",", "")
		}
	}
	return amounts
}

var actionVerbs = []string{
	"must", "shall", "required", "need", "should",
	"provide", "submit", "deliver", "complete",
}

func extractActionItems(sentences []string) []string {
	items := make([]string, 0)
	for _, sentence := range sentences {
		if len(sentence) >= 200 {
			continue
		}
		lowered := strings.ToLower(sentence)
		for _, verb := range actionVerbs {
			if strings.Contains(lowered, verb) {
				items = append(items, sentence)
				break
			}
		}
		if len(items) == maxActionItems {
			break
		}
	}
	return items
}

// confidenceScore follows the compression/length heuristic: summaries that
// compress to 5-15% of the source at a reasonable absolute length score
// highest.
func confidenceScore(originalWords, summaryWords int) float64 {
	if originalWords == 0 || summaryWords == 0 {
		return 0
	}
	compression := float64(summaryWords) / float64(originalWords)

	var ratioScore float64
	switch {
	case compression >= 0.05 && compression <= 0.15:
		ratioScore = 1
	case compression < 0.05:
		ratioScore = compression / 0.05
	default:
		ratioScore = 1 - (compression-0.15)/0.35
		if ratioScore < 0 {
			ratioScore = 0
		}
	}

	var lengthScore float64
	switch {
	case summaryWords < 20:
		lengthScore = float64(summaryWords) / 20
	case summaryWords > 200:
		lengthScore = 1 - float64(summaryWords-200)/200
		if lengthScore < 0 {
			lengthScore = 0
		}
	default:
		lengthScore = 1
	}

	return round3(ratioScore*0.6 + lengthScore*0.4)
}

func round3(value float64) float64 {
	return float64(int(value*1000+0.5)) / 1000
}
