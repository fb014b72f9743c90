package services

import (
	"fmt"
	"strings"

	"github.com/yungbote/studybridge-backend/internal/types"
)

// All generative prompts ask for a single fenced JSON block so responses
// parse through aijson the same way regardless of stage.

const planningSystem = `You estimate how much study content a piece of source material supports.
Respond with a single fenced JSON block of the form:
` + "```json\n{\"item_count\": <int>, \"card_count\": <int>}\n```"

func planningUser(clippedSource string) string {
	return fmt.Sprintf(
		"Estimate how many high-quality question/answer items and recall cards can be produced from this material. Be conservative.\n\nMaterial (truncated):\n%s",
		clippedSource,
	)
}

const splitSystem = `You split already-written study material into discrete question/answer items.
Do not invent new content; only reorganize what is present.
Respond with a single fenced JSON block:
` + "```json\n{\"items\": [{\"question\": \"...\", \"answer\": \"...\", \"explanation\": \"...\"}]}\n```"

func splitUser(source string) string {
	return fmt.Sprintf("Split the following material into items:\n\n%s", source)
}

const generationSystem = `You write study content from source material.
Questions must be answerable from the given text alone.
Respond with a single fenced JSON block:
` + "```json\n{\"items\": [{\"question\": \"...\", \"answer\": \"...\", \"explanation\": \"...\", \"tags\": [\"...\"]}], \"cards\": [{\"front\": \"...\", \"back\": \"...\"}]}\n```"

func generationUser(chunk string, itemTarget, cardTarget int, seenTexts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Produce about %d question/answer items and %d recall cards from this text.\n\n", itemTarget, cardTarget)
	if len(seenTexts) > 0 {
		b.WriteString("Do NOT produce items similar to any of these already-generated questions:\n")
		for _, t := range seenTexts {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}
	b.WriteString("Text:\n")
	b.WriteString(chunk)
	return b.String()
}

const assignmentSystem = `You classify study content into a two-level taxonomy of subjects and units.
Reference content strictly by the given indexes; never repeat item text back.
Respond with a single fenced JSON block:
` + "```json\n{\"assignments\": [{\"subject_name\": \"...\", \"unit_name\": \"...\", \"is_new_unit\": <bool>, \"item_indexes\": [<int>], \"card_indexes\": [<int>]}], \"key_tags\": [\"...\"]}\n```"

func assignmentUser(digest string, subjects []subjectDigest, scoped bool) string {
	var b strings.Builder
	b.WriteString("Assign every indexed entry below to a subject and unit.\n\n")
	if len(subjects) > 0 {
		b.WriteString("Existing taxonomy:\n")
		for _, s := range subjects {
			fmt.Fprintf(&b, "- %s: %s\n", s.Name, strings.Join(s.UnitNames, ", "))
		}
		if scoped {
			b.WriteString("\nOnly the subject above may be used. Prefer fitting content into its existing units; propose a new unit (is_new_unit=true) only when nothing fits.\n")
		} else {
			b.WriteString("\nPrefer existing subjects and units; mark proposed units with is_new_unit=true.\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Content digest:\n")
	b.WriteString(digest)
	return b.String()
}

// subjectDigest is the compact taxonomy view embedded in the assignment
// prompt.
type subjectDigest struct {
	Name      string
	UnitNames []string
}

func buildContentDigest(items []types.StagedItem, cards []types.StagedCard) string {
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "item[%d]: %s\n", i, it.Question)
	}
	for i, c := range cards {
		fmt.Fprintf(&b, "card[%d]: %s\n", i, c.Front)
	}
	return b.String()
}
