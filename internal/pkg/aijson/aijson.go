package aijson

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/yungbote/studybridge-backend/internal/apperr"
)

var fencedBlock = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// Unmarshal decodes the structured payload a generative call was asked to
// produce. It first looks for a fenced code block; absent one, it tries the
// whole response as a bare JSON document. Either parse failure is a
// *apperr.MalformedOutputError — never an empty result — so callers can
// distinguish bad model output from a transport failure.
func Unmarshal(response string, out any) error {
	candidate := strings.TrimSpace(response)
	if m := fencedBlock.FindStringSubmatch(candidate); len(m) > 1 {
		candidate = strings.TrimSpace(m[1])
	}
	if candidate == "" {
		return &apperr.MalformedOutputError{Detail: "empty response"}
	}
	if err := json.Unmarshal([]byte(candidate), out); err != nil {
		return &apperr.MalformedOutputError{Detail: "response is not valid JSON", Err: err}
	}
	return nil
}
