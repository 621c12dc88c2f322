package diff

import (
	"fmt"
	"strings"

	"github.com/realsuite/docintel-back/internal/domain"
	"github.com/realsuite/docintel-back/internal/registry"
)

// Significance tier boundaries on the change percentage. Operations touching
// a category's critical terms override both.
const (
	highChangeThreshold   = 25.0
	mediumChangeThreshold = 5.0
)

// Classifier assigns a significance tier to a change set based on the
// category's critical-term list. Pure and side-effect free.
type Classifier struct {
	registry *registry.Registry
}

func NewClassifier(reg *registry.Registry) *Classifier {
	return &Classifier{registry: reg}
}

// Classify applies the decision order: critical-term match, then change
// volume tiers.
func (c *Classifier) Classify(
	operations []domain.ChangeOperation,
	changePercentage float64,
	category domain.Category,
) domain.Significance {
	terms := c.registry.CriticalTerms(category)
	for _, operation := range operations {
		if touchesCriticalTerm(operation, terms) {
			return domain.SignificanceCritical
		}
	}

	switch {
	case changePercentage > highChangeThreshold:
		return domain.SignificanceHigh
	case changePercentage >= mediumChangeThreshold:
		return domain.SignificanceMedium
	default:
		return domain.SignificanceLow
	}
}

// CriticalChanges lists the operations that touched critical terms, with the
// matched keywords, in operation order.
func (c *Classifier) CriticalChanges(
	operations []domain.ChangeOperation,
	category domain.Category,
) []domain.CriticalChange {
	terms := c.registry.CriticalTerms(category)
	changes := make([]domain.CriticalChange, 0)
	for _, operation := range operations {
		keywords := matchedTerms(operation, terms)
		if len(keywords) == 0 {
			continue
		}
		changes = append(changes, domain.CriticalChange{
			Type:     operation.Type,
			OldText:  operation.OldText,
			NewText:  operation.NewText,
			Keywords: keywords,
		})
	}
	return changes
}

func touchesCriticalTerm(operation domain.ChangeOperation, terms []string) bool {
	content := strings.ToLower(operation.OldText + "\n" + operation.NewText)
	for _, term := range terms {
		if strings.Contains(content, term) {
			return true
		}
	}
	return false
}

func matchedTerms(operation domain.ChangeOperation, terms []string) []string {
	content := strings.ToLower(operation.OldText + "\n" + operation.NewText)
	matched := make([]string, 0)
	for _, term := range terms {
		if strings.Contains(content, term) {
			matched = append(matched, term)
		}
	}
	return matched
}

// Summarize renders a short human-readable description of a change set.
func Summarize(operations []domain.ChangeOperation) string {
	if len(operations) == 0 {
		return "No changes detected"
	}

	var inserts, deletes, modifies int
	for _, operation := range operations {
		switch operation.Type {
		case domain.OperationInsert:
			inserts++
		case domain.OperationDelete:
			deletes++
		case domain.OperationModify:
			modifies++
		}
	}

	parts := make([]string, 0, 3)
	if inserts > 0 {
		parts = append(parts, fmt.Sprintf("%d addition(s)", inserts))
	}
	if deletes > 0 {
		parts = append(parts, fmt.Sprintf("%d deletion(s)", deletes))
	}
	if modifies > 0 {
		parts = append(parts, fmt.Sprintf("%d modification(s)", modifies))
	}
	return "Document updated with " + strings.Join(parts, ", ") + "."
}
