package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitDeterministic(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "Sentence number %d talks about the material in some depth. ", i)
	}
	text := b.String()

	first := Split(text, DefaultSegmentBudget)
	second := Split(text, DefaultSegmentBudget)
	if len(first) == 0 {
		t.Fatalf("expected segments, got none")
	}
	if len(first) != len(second) {
		t.Fatalf("segment counts differ across runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("segment %d differs across runs", i)
		}
	}
}

func TestSplitRespectsBudgetAndSentences(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("Alpha beta gamma delta epsilon zeta eta theta. ", 120))
	segments := Split(text, DefaultSegmentBudget)
	if len(segments) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segments))
	}
	for i, s := range segments {
		if len(s) > DefaultSegmentBudget {
			t.Fatalf("segment %d exceeds budget: %d chars", i, len(s))
		}
		if !strings.HasSuffix(s, ".") {
			t.Fatalf("segment %d split mid-sentence: %q", i, s[len(s)-20:])
		}
	}
	joined := strings.Join(segments, " ")
	if joined != text {
		t.Fatalf("segments do not reassemble the source text")
	}
}

func TestSplitOversizeSentence(t *testing.T) {
	long := strings.Repeat("x", 3*DefaultSegmentBudget) + "."
	text := "Short one. " + long + " Short two."
	segments := Split(text, DefaultSegmentBudget)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if len(segments[1]) <= DefaultSegmentBudget {
		t.Fatalf("oversize sentence should occupy its own segment intact")
	}
}

func TestSplitEmpty(t *testing.T) {
	if got := Split("", DefaultSegmentBudget); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
	if got := Split("   \n\t ", DefaultSegmentBudget); got != nil {
		t.Fatalf("expected nil for blank text, got %v", got)
	}
}

func TestPerBatchTargetEvenSplit(t *testing.T) {
	// Quota 20 across 4 batches: 5 each.
	remaining := 20
	var got []int
	for batches := 4; batches > 0; batches-- {
		n := PerBatchTarget(remaining, batches)
		got = append(got, n)
		remaining -= n
	}
	want := []int{5, 5, 5, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("distribution mismatch: got %v want %v", got, want)
		}
	}
}

func TestPerBatchTargetUnevenSplit(t *testing.T) {
	// Quota 20 across 3 batches: ceiling division front-loads to 7,7,6.
	remaining := 20
	var got []int
	for batches := 3; batches > 0; batches-- {
		n := PerBatchTarget(remaining, batches)
		got = append(got, n)
		remaining -= n
	}
	want := []int{7, 7, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("distribution mismatch: got %v want %v", got, want)
		}
	}
	if remaining != 0 {
		t.Fatalf("distribution under- or over-shot quota by %d", -remaining)
	}
}

func TestPerBatchTargetSmallQuotaLargeBatchCount(t *testing.T) {
	// Quota far below the batch count still yields at least one per batch
	// until the quota is spent, then zero.
	if got := PerBatchTarget(3, 10); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := PerBatchTarget(0, 7); got != 0 {
		t.Fatalf("expected 0 for exhausted quota, got %d", got)
	}
	if got := PerBatchTarget(5, 0); got != 0 {
		t.Fatalf("expected 0 for no remaining batches, got %d", got)
	}
}

// Budgets are rune counts: two 901-rune sentences of two-byte characters
// fit one segment together even though their byte length is far over the
// budget.
func TestSplitBudgetCountsRunes(t *testing.T) {
	sentence := strings.Repeat("é", 900) + "."
	text := sentence + " " + sentence

	segments := Split(text, DefaultSegmentBudget)
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	if utf8.RuneCountInString(segments[0]) != 901+1+901 {
		t.Fatalf("segment rune count = %d", utf8.RuneCountInString(segments[0]))
	}
}

// Pinned scenario: a 5200-character source of three sentences (2100, 1000,
// 2100) chunks into exactly three segments, the oversize sentences standing
// alone and the middle one within budget.
func TestSplitThreeLongSentences(t *testing.T) {
	long := strings.Repeat("a", 2099) + "."
	short := strings.Repeat("b", 999) + "."
	text := long + " " + short + " " + long

	segments := Split(text, DefaultSegmentBudget)
	if len(segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(segments))
	}
	if segments[0] != long || segments[1] != short || segments[2] != long {
		t.Fatalf("segments do not match the source sentences")
	}
	if len(segments[1]) > DefaultSegmentBudget {
		t.Fatalf("middle segment exceeds budget: %d", len(segments[1]))
	}
}
