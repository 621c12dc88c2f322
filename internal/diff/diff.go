package diff

import (
	"sort"
	"strings"

	"github.com/realsuite/docintel-back/internal/domain"
)

// DefaultModifySimilarityThreshold is the minimum normalized similarity for
// a paired delete/insert to be reported as a single modify operation.
const DefaultModifySimilarityThreshold = 0.6

// Engine computes ordered change operations between two text bodies. It is
// stateless apart from its tuning and safe for concurrent use.
type Engine struct {
	modifyThreshold float64
}

func NewEngine(modifyThreshold float64) *Engine {
	if modifyThreshold <= 0 || modifyThreshold >= 1 {
		modifyThreshold = DefaultModifySimilarityThreshold
	}
	return &Engine{modifyThreshold: modifyThreshold}
}

// Result is the raw diff output before persistence.
type Result struct {
	Operations       []domain.ChangeOperation
	ChangePercentage float64
}

// Diff tokenizes both texts, aligns them with a longest-common-subsequence
// pass, and pairs unmatched delete/insert tokens into modify operations when
// their similarity clears the threshold. Output is deterministic for a given
// input pair, and the change percentage is invariant under argument swap.
func (e *Engine) Diff(oldText, newText string) Result {
	oldTokens := tokenize(oldText)
	newTokens := tokenize(newText)

	if len(oldTokens) == 0 && len(newTokens) == 0 {
		return Result{Operations: []domain.ChangeOperation{}, ChangePercentage: 0}
	}

	deletes, inserts := unmatchedTokens(oldTokens, newTokens)
	operations := e.pairOperations(deletes, inserts)

	maxTokens := len(oldTokens)
	if len(newTokens) > maxTokens {
		maxTokens = len(newTokens)
	}
	percentage := float64(len(operations)) / float64(maxTokens) * 100
	if percentage > 100 {
		percentage = 100
	}

	return Result{Operations: operations, ChangePercentage: percentage}
}

type token struct {
	text  string
	index int
}

// tokenize splits into non-empty trimmed lines. Single-line documents fall
// back to sentence units so the alignment still has something to anchor on.
func tokenize(text string) []token {
	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	if len(lines) == 1 {
		sentences := splitSentences(lines[0])
		if len(sentences) > 1 {
			lines = sentences
		}
	}

	tokens := make([]token, 0, len(lines))
	for i, line := range lines {
		tokens = append(tokens, token{text: line, index: i})
	}
	return tokens
}

func splitSentences(text string) []string {
	sentences := make([]string, 0)
	var builder strings.Builder
	for _, char := range text {
		builder.WriteRune(char)
		if char == '.' || char == '!' || char == '?' {
			sentence := strings.TrimSpace(builder.String())
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			builder.Reset()
		}
	}
	if remainder := strings.TrimSpace(builder.String()); remainder != "" {
		sentences = append(sentences, remainder)
	}
	return sentences
}

// unmatchedTokens walks the LCS table and returns the old tokens with no
// anchor in the new text and the new tokens with no anchor in the old text,
// both in document order.
func unmatchedTokens(oldTokens, newTokens []token) (deletes, inserts []token) {
	table := lcsTable(oldTokens, newTokens)

	i, j := 0, 0
	for i < len(oldTokens) && j < len(newTokens) {
		if oldTokens[i].text == newTokens[j].text {
			i++
			j++
			continue
		}
		if table[i+1][j] >= table[i][j+1] {
			deletes = append(deletes, oldTokens[i])
			i++
		} else {
			inserts = append(inserts, newTokens[j])
			j++
		}
	}
	deletes = append(deletes, oldTokens[i:]...)
	inserts = append(inserts, newTokens[j:]...)
	return deletes, inserts
}

func lcsTable(oldTokens, newTokens []token) [][]int {
	table := make([][]int, len(oldTokens)+1)
	for i := range table {
		table[i] = make([]int, len(newTokens)+1)
	}
	for i := len(oldTokens) - 1; i >= 0; i-- {
		for j := len(newTokens) - 1; j >= 0; j-- {
			if oldTokens[i].text == newTokens[j].text {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}
	return table
}

// pairOperations matches deleted tokens against inserted ones across the
// whole document. Candidate pairs above the threshold are taken best-first;
// the ordering key is invariant under swapping the two texts, which keeps
// the operation count, and with it the change percentage, symmetric.
func (e *Engine) pairOperations(deletes, inserts []token) []domain.ChangeOperation {
	type candidate struct {
		deleteIdx  int
		insertIdx  int
		similarity float64
	}

	candidates := make([]candidate, 0)
	for di, deleted := range deletes {
		for ii, inserted := range inserts {
			similarity := Similarity(deleted.text, inserted.text)
			if similarity > e.modifyThreshold {
				candidates = append(candidates, candidate{deleteIdx: di, insertIdx: ii, similarity: similarity})
			}
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.similarity != cb.similarity {
			return ca.similarity > cb.similarity
		}
		loA, hiA := orderedPair(ca.deleteIdx, ca.insertIdx)
		loB, hiB := orderedPair(cb.deleteIdx, cb.insertIdx)
		if loA != loB {
			return loA < loB
		}
		return hiA < hiB
	})

	usedDeletes := make([]bool, len(deletes))
	usedInserts := make([]bool, len(inserts))
	operations := make([]domain.ChangeOperation, 0, len(deletes)+len(inserts))

	for _, c := range candidates {
		if usedDeletes[c.deleteIdx] || usedInserts[c.insertIdx] {
			continue
		}
		usedDeletes[c.deleteIdx] = true
		usedInserts[c.insertIdx] = true
		operations = append(operations, domain.ChangeOperation{
			Type:       domain.OperationModify,
			Location:   inserts[c.insertIdx].index,
			OldText:    deletes[c.deleteIdx].text,
			NewText:    inserts[c.insertIdx].text,
			Similarity: roundSimilarity(c.similarity),
		})
	}
	for di, deleted := range deletes {
		if usedDeletes[di] {
			continue
		}
		operations = append(operations, domain.ChangeOperation{
			Type:     domain.OperationDelete,
			Location: deleted.index,
			OldText:  deleted.text,
		})
	}
	for ii, inserted := range inserts {
		if usedInserts[ii] {
			continue
		}
		operations = append(operations, domain.ChangeOperation{
			Type:     domain.OperationInsert,
			Location: inserted.index,
			NewText:  inserted.text,
		})
	}

	sort.SliceStable(operations, func(a, b int) bool {
		if operations[a].Location != operations[b].Location {
			return operations[a].Location < operations[b].Location
		}
		return operationRank(operations[a].Type) < operationRank(operations[b].Type)
	})
	return operations
}

func orderedPair(a, b int) (int, int) {
	if a <= b {
		return a, b
	}
	return b, a
}

func operationRank(kind domain.OperationType) int {
	switch kind {
	case domain.OperationDelete:
		return 0
	case domain.OperationModify:
		return 1
	default:
		return 2
	}
}

// Similarity is a normalized edit similarity in [0,1]: twice the length of
// the longest common subsequence of runes over the combined length.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	runesA := []rune(a)
	runesB := []rune(b)
	if len(runesA) == 0 || len(runesB) == 0 {
		return 0
	}

	previous := make([]int, len(runesB)+1)
	current := make([]int, len(runesB)+1)
	for i := 1; i <= len(runesA); i++ {
		for j := 1; j <= len(runesB); j++ {
			if runesA[i-1] == runesB[j-1] {
				current[j] = previous[j-1] + 1
			} else if previous[j] >= current[j-1] {
				current[j] = previous[j]
			} else {
				current[j] = current[j-1]
			}
		}
		previous, current = current, previous
	}
	matched := previous[len(runesB)]
	return 2 * float64(matched) / float64(len(runesA)+len(runesB))
}

func roundSimilarity(value float64) float64 {
	return float64(int(value*1000+0.5)) / 1000
}
