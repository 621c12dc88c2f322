package diff

import (
	"reflect"
	"testing"

	"github.com/realsuite/docintel-back/internal/domain"
)

func TestDiffIdenticalTexts(t *testing.T) {
	engine := NewEngine(DefaultModifySimilarityThreshold)
	text := "Purchase price: $500,000\nClosing date: 2026-09-15\nBuyer: John Smith"

	result := engine.Diff(text, text)
	if len(result.Operations) != 0 {
		t.Fatalf("expected no operations, got %d", len(result.Operations))
	}
	if result.ChangePercentage != 0 {
		t.Fatalf("expected 0%% change, got %f", result.ChangePercentage)
	}
}

func TestDiffEmptyTexts(t *testing.T) {
	engine := NewEngine(DefaultModifySimilarityThreshold)

	result := engine.Diff("", "")
	if len(result.Operations) != 0 || result.ChangePercentage != 0 {
		t.Fatalf("expected empty diff, got %d ops %f%%", len(result.Operations), result.ChangePercentage)
	}

	result = engine.Diff("", "New clause added")
	if len(result.Operations) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(result.Operations))
	}
	if result.Operations[0].Type != domain.OperationInsert {
		t.Fatalf("expected insert, got %s", result.Operations[0].Type)
	}
	if result.ChangePercentage != 100 {
		t.Fatalf("expected 100%% change, got %f", result.ChangePercentage)
	}
}

func TestDiffReportsModifyForSimilarLines(t *testing.T) {
	engine := NewEngine(DefaultModifySimilarityThreshold)
	oldText := "Purchase price: $500,000\nClosing date: 2026-09-15"
	newText := "Purchase price: $510,000\nClosing date: 2026-09-15"

	result := engine.Diff(oldText, newText)
	if len(result.Operations) != 1 {
		t.Fatalf("expected 1 operation, got %d: %+v", len(result.Operations), result.Operations)
	}
	op := result.Operations[0]
	if op.Type != domain.OperationModify {
		t.Fatalf("expected modify, got %s", op.Type)
	}
	if op.OldText != "Purchase price: $500,000" || op.NewText != "Purchase price: $510,000" {
		t.Fatalf("unexpected texts: %+v", op)
	}
	if op.Similarity <= DefaultModifySimilarityThreshold {
		t.Fatalf("expected similarity above threshold, got %f", op.Similarity)
	}
	if result.ChangePercentage != 50 {
		t.Fatalf("expected 50%% change, got %f", result.ChangePercentage)
	}
}

func TestDiffUnrelatedLinesStayDeleteInsert(t *testing.T) {
	engine := NewEngine(DefaultModifySimilarityThreshold)
	oldText := "shared line\nzzzzzzzzzz"
	newText := "shared line\nabc def ghi"

	result := engine.Diff(oldText, newText)
	if len(result.Operations) != 2 {
		t.Fatalf("expected 2 operations, got %d: %+v", len(result.Operations), result.Operations)
	}
	if result.Operations[0].Type != domain.OperationDelete {
		t.Fatalf("expected delete first, got %s", result.Operations[0].Type)
	}
	if result.Operations[1].Type != domain.OperationInsert {
		t.Fatalf("expected insert second, got %s", result.Operations[1].Type)
	}
}

func TestDiffDeterministic(t *testing.T) {
	engine := NewEngine(DefaultModifySimilarityThreshold)
	oldText := "alpha one\nbeta two\ngamma three\ndelta four"
	newText := "alpha one updated\nbeta two\ngamma three revised\nepsilon five"

	first := engine.Diff(oldText, newText)
	for i := 0; i < 10; i++ {
		again := engine.Diff(oldText, newText)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("diff not deterministic: %+v vs %+v", first, again)
		}
	}
}

func TestDiffChangePercentageSymmetric(t *testing.T) {
	engine := NewEngine(DefaultModifySimilarityThreshold)
	cases := [][2]string{
		{
			"Purchase price: $500,000\nClosing date: 2026-09-15\nEarnest money: $5,000",
			"Purchase price: $525,000\nClosing date: 2026-10-01\nInspection due in ten days",
		},
		{
			"line a\nline b\nline c",
			"line c\nline d",
		},
		{
			"alpha beta gamma\ndelta epsilon\nzeta eta theta",
			"alpha beta gamma delta\ndelta epsilon zeta\nzeta theta eta\nextra line",
		},
	}

	for _, pair := range cases {
		forward := engine.Diff(pair[0], pair[1])
		backward := engine.Diff(pair[1], pair[0])
		if forward.ChangePercentage != backward.ChangePercentage {
			t.Fatalf(
				"change percentage asymmetric: %f vs %f for %q / %q",
				forward.ChangePercentage, backward.ChangePercentage, pair[0], pair[1],
			)
		}
		if len(forward.Operations) != len(backward.Operations) {
			t.Fatalf(
				"operation count asymmetric: %d vs %d",
				len(forward.Operations), len(backward.Operations),
			)
		}
	}
}

func TestDiffSingleLineFallsBackToSentences(t *testing.T) {
	engine := NewEngine(DefaultModifySimilarityThreshold)
	oldText := "The buyer shall pay the deposit. The closing occurs on September 15."
	newText := "The buyer shall pay the deposit. The closing occurs on October 1."

	result := engine.Diff(oldText, newText)
	if len(result.Operations) != 1 {
		t.Fatalf("expected 1 operation from sentence fallback, got %d: %+v", len(result.Operations), result.Operations)
	}
	if result.Operations[0].Type != domain.OperationModify {
		t.Fatalf("expected modify, got %s", result.Operations[0].Type)
	}
}

func TestDiffOperationsOrderedByLocation(t *testing.T) {
	engine := NewEngine(DefaultModifySimilarityThreshold)
	oldText := "one\ntwo\nthree\nfour\nfive"
	newText := "one\ntwo changed slightly\nthree\nnew entry\nfive"

	result := engine.Diff(oldText, newText)
	for i := 1; i < len(result.Operations); i++ {
		if result.Operations[i].Location < result.Operations[i-1].Location {
			t.Fatalf("operations out of order: %+v", result.Operations)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("abc", "abc"); got != 1 {
		t.Fatalf("identical strings should score 1, got %f", got)
	}
	if got := Similarity("", "abc"); got != 0 {
		t.Fatalf("empty string should score 0, got %f", got)
	}
	got := Similarity("kitten", "sitting")
	if got <= 0 || got >= 1 {
		t.Fatalf("expected partial similarity, got %f", got)
	}
	if Similarity("kitten", "sitting") != Similarity("sitting", "kitten") {
		t.Fatal("similarity must be symmetric")
	}
}
