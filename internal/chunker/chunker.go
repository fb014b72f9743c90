package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultSegmentBudget is the character budget for a single generation
// call's worth of source text.
const DefaultSegmentBudget = 2000

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// Split breaks source text into ordered segments sized for one generation
// call each. Splitting is deterministic: the same text always yields the
// same segments, which is what makes completed-batch checkpoints meaningful
// across retries. Sentences are never split across segments; a sentence
// larger than the budget occupies a segment of its own.
func Split(text string, budget int) []string {
	if budget <= 0 {
		budget = DefaultSegmentBudget
	}
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	// Budgets count runes, not bytes, so multi-byte source text packs the
	// same number of characters per segment as ASCII does.
	var segments []string
	var current strings.Builder
	size := 0
	for _, s := range sentences {
		n := utf8.RuneCountInString(s)
		if size > 0 && size+1+n > budget {
			segments = append(segments, current.String())
			current.Reset()
			size = 0
		}
		if size > 0 {
			current.WriteByte(' ')
			size++
		}
		current.WriteString(s)
		size += n
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}
	return segments
}

// splitSentences cuts on `.`, `!` or `?` followed by whitespace, keeping
// the terminator with its sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[start : loc[0]+1])
		if s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// PerBatchTarget spreads a remaining quota evenly over the remaining
// batches with ceiling division, so uneven batch counts still sum to at
// least the quota. The floor of 1 keeps very long sources from rounding a
// batch's target down to nothing.
func PerBatchTarget(remainingQuota, remainingBatches int) int {
	if remainingBatches <= 0 || remainingQuota <= 0 {
		return 0
	}
	t := (remainingQuota + remainingBatches - 1) / remainingBatches
	if t < 1 {
		t = 1
	}
	return t
}
