package aijson

import (
	"testing"

	"github.com/yungbote/studybridge-backend/internal/apperr"
)

type payload struct {
	ItemCount int `json:"item_count"`
	CardCount int `json:"card_count"`
}

func TestUnmarshalFencedBlock(t *testing.T) {
	response := "Here is the sizing you asked for:\n```json\n{\"item_count\": 12, \"card_count\": 4}\n```\nLet me know if you need anything else."
	var got payload
	if err := Unmarshal(response, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ItemCount != 12 || got.CardCount != 4 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestUnmarshalFenceWithoutLanguage(t *testing.T) {
	response := "```\n{\"item_count\": 3}\n```"
	var got payload
	if err := Unmarshal(response, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ItemCount != 3 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestUnmarshalBareJSON(t *testing.T) {
	var got payload
	if err := Unmarshal(`{"item_count": 7, "card_count": 2}`, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ItemCount != 7 || got.CardCount != 2 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestUnmarshalMissingFieldsDefaultToZero(t *testing.T) {
	var got payload
	if err := Unmarshal(`{"item_count": 5}`, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CardCount != 0 {
		t.Fatalf("missing field should decode to zero, got %d", got.CardCount)
	}
}

func TestUnmarshalProseIsMalformed(t *testing.T) {
	var got payload
	err := Unmarshal("I think around ten items would work well.", &got)
	if err == nil {
		t.Fatalf("expected error for prose response")
	}
	if !apperr.IsMalformedOutput(err) {
		t.Fatalf("expected malformed output error, got %T: %v", err, err)
	}
}

func TestUnmarshalEmptyResponse(t *testing.T) {
	var got payload
	if err := Unmarshal("   ", &got); !apperr.IsMalformedOutput(err) {
		t.Fatalf("expected malformed output error, got %v", err)
	}
}
