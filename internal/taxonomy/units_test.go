package taxonomy

import (
	"testing"

	"gorm.io/datatypes"

	"github.com/yungbote/studybridge-backend/internal/types"
)

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"Linear Algebra":      "linear_algebra",
		"  linear   algebra ": "linear_algebra",
		"ORGANIC chemistry":   "organic_chemistry",
		"Calculus":            "calculus",
		"":                    "",
	}
	for in, want := range cases {
		if got := NormalizeKey(in); got != want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeUnitsNames(t *testing.T) {
	raw := datatypes.JSON(`["Vectors","Matrices"]`)
	ul, err := DecodeUnits(types.UnitsFormatNames, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ul.Names) != 2 || ul.Names[0] != "Vectors" {
		t.Fatalf("unexpected names: %v", ul.Names)
	}
	if !ul.Contains("vectors") {
		t.Fatalf("Contains should match by normalized key")
	}
	got := ul.UnitNames()
	if len(got) != 2 || got[1] != "Matrices" {
		t.Fatalf("unexpected unit names: %v", got)
	}
}

func TestDecodeUnitsStructured(t *testing.T) {
	raw := datatypes.JSON(`[{"name":"Vectors","key":"vectors","item_count":3,"card_count":1}]`)
	ul, err := DecodeUnits(types.UnitsFormatStructured, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ul.Structured) != 1 || ul.Structured[0].ItemCount != 3 {
		t.Fatalf("unexpected units: %+v", ul.Structured)
	}
	items, cards := ul.Totals()
	if items != 3 || cards != 1 {
		t.Fatalf("unexpected totals: %d items, %d cards", items, cards)
	}
}

func TestDecodeUnitsEmpty(t *testing.T) {
	for _, raw := range []datatypes.JSON{nil, datatypes.JSON("null")} {
		ul, err := DecodeUnits(types.UnitsFormatStructured, raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(ul.Structured) != 0 {
			t.Fatalf("expected empty list, got %+v", ul.Structured)
		}
	}
}

func TestAddIsIdempotentByKey(t *testing.T) {
	ul := UnitList{Format: types.UnitsFormatStructured}
	ul.Add("Vectors")
	ul.Add("vectors")
	ul.Add("  VECTORS ")
	if len(ul.Structured) != 1 {
		t.Fatalf("expected a single unit, got %d", len(ul.Structured))
	}
	if ul.Structured[0].Key != "vectors" {
		t.Fatalf("unexpected key %q", ul.Structured[0].Key)
	}
}

func TestIncrementAndDecrementFloorAtZero(t *testing.T) {
	ul := UnitList{Format: types.UnitsFormatStructured}
	ul.Add("Vectors")
	ul.Increment("vectors", 4, 2)
	ul.Decrement("vectors", 10, 1)
	u := ul.Structured[0]
	if u.ItemCount != 0 {
		t.Fatalf("item count should floor at zero, got %d", u.ItemCount)
	}
	if u.CardCount != 1 {
		t.Fatalf("card count should be 1, got %d", u.CardCount)
	}
}

func TestIncrementIgnoredForNameLists(t *testing.T) {
	ul := UnitList{Format: types.UnitsFormatNames, Names: []string{"Vectors"}}
	ul.Increment("vectors", 5, 5)
	items, cards := ul.Totals()
	if items != 0 || cards != 0 {
		t.Fatalf("name lists carry no counts, got %d/%d", items, cards)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	ul := UnitList{Format: types.UnitsFormatStructured}
	ul.Add("Vectors")
	ul.Increment("vectors", 2, 3)
	decoded, err := DecodeUnits(types.UnitsFormatStructured, ul.Encode())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Structured[0].ItemCount != 2 || decoded.Structured[0].CardCount != 3 {
		t.Fatalf("round trip lost counts: %+v", decoded.Structured[0])
	}
}
