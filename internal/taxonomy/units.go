package taxonomy

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/yungbote/studybridge-backend/internal/types"
)

// NormalizeKey derives the identity key for a subject or unit name:
// lowercase with whitespace runs collapsed to single underscores.
func NormalizeKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), "_")
}

// StructuredUnit is the richer of the two unit representations: a named
// unit carrying its own aggregate counts and optional long-form notes.
type StructuredUnit struct {
	Name      string `json:"name"`
	Key       string `json:"key"`
	ItemCount int    `json:"item_count"`
	CardCount int    `json:"card_count"`
	Notes     string `json:"notes,omitempty"`
}

// UnitList is the tagged variant over the two unit shapes a Subject may
// store: a plain list of names, or structured records. All consumers that
// need to mutate units go through this type so the shape ambiguity stays
// confined to one place.
type UnitList struct {
	Format     types.UnitsFormat
	Names      []string
	Structured []StructuredUnit
}

// DecodeUnits parses a Subject's units column according to its declared
// format. A null or empty column decodes to an empty list of that format.
func DecodeUnits(format types.UnitsFormat, raw datatypes.JSON) (UnitList, error) {
	ul := UnitList{Format: format}
	if len(raw) == 0 || string(raw) == "null" {
		return ul, nil
	}
	switch format {
	case types.UnitsFormatNames:
		if err := json.Unmarshal(raw, &ul.Names); err != nil {
			return UnitList{}, fmt.Errorf("decode unit names: %w", err)
		}
	case types.UnitsFormatStructured:
		if err := json.Unmarshal(raw, &ul.Structured); err != nil {
			return UnitList{}, fmt.Errorf("decode structured units: %w", err)
		}
	default:
		return UnitList{}, fmt.Errorf("unknown units format %q", format)
	}
	return ul, nil
}

// Encode serializes the list back into the Subject's units column.
func (ul UnitList) Encode() datatypes.JSON {
	switch ul.Format {
	case types.UnitsFormatNames:
		if ul.Names == nil {
			ul.Names = []string{}
		}
		return types.MustJSON(ul.Names)
	default:
		if ul.Structured == nil {
			ul.Structured = []StructuredUnit{}
		}
		return types.MustJSON(ul.Structured)
	}
}

// Contains reports whether a unit with the given normalized key exists.
func (ul UnitList) Contains(key string) bool {
	switch ul.Format {
	case types.UnitsFormatNames:
		for _, n := range ul.Names {
			if NormalizeKey(n) == key {
				return true
			}
		}
	case types.UnitsFormatStructured:
		for _, u := range ul.Structured {
			if u.Key == key {
				return true
			}
		}
	}
	return false
}

// Add appends a new unit under the list's own format. Adding an existing
// key is a no-op.
func (ul *UnitList) Add(name string) {
	key := NormalizeKey(name)
	if ul.Contains(key) {
		return
	}
	switch ul.Format {
	case types.UnitsFormatNames:
		ul.Names = append(ul.Names, name)
	default:
		ul.Structured = append(ul.Structured, StructuredUnit{Name: name, Key: key})
	}
}

// Increment adds item/card counts to the unit with the given key. Plain
// name lists carry no per-unit counts, so only structured lists change.
func (ul *UnitList) Increment(key string, items, cards int) {
	if ul.Format != types.UnitsFormatStructured {
		return
	}
	for i := range ul.Structured {
		if ul.Structured[i].Key == key {
			ul.Structured[i].ItemCount += items
			ul.Structured[i].CardCount += cards
			return
		}
	}
}

// Decrement subtracts item/card counts, flooring each at zero so an
// already-inconsistent unit never goes negative.
func (ul *UnitList) Decrement(key string, items, cards int) {
	if ul.Format != types.UnitsFormatStructured {
		return
	}
	for i := range ul.Structured {
		if ul.Structured[i].Key == key {
			ul.Structured[i].ItemCount = floorZero(ul.Structured[i].ItemCount - items)
			ul.Structured[i].CardCount = floorZero(ul.Structured[i].CardCount - cards)
			return
		}
	}
}

// Totals sums the per-unit counts. Only meaningful for structured lists;
// plain name lists report zeros and callers fall back to subject aggregates.
func (ul UnitList) Totals() (items, cards int) {
	for _, u := range ul.Structured {
		items += u.ItemCount
		cards += u.CardCount
	}
	return items, cards
}

// UnitNames returns display names regardless of representation.
func (ul UnitList) UnitNames() []string {
	switch ul.Format {
	case types.UnitsFormatNames:
		out := make([]string, len(ul.Names))
		copy(out, ul.Names)
		return out
	default:
		out := make([]string, 0, len(ul.Structured))
		for _, u := range ul.Structured {
			out = append(out, u.Name)
		}
		return out
	}
}

func floorZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
