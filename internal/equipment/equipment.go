// Package equipment is the closed catalogue of equipment kinds and the
// display/validation rules they imply. Everything here is a pure function of
// an exercise's equipment tag set.
package equipment

import "fmt"

// ExtraField describes an equipment-specific secondary numeric value tracked
// per set (currently only the ring height for Anillas).
type ExtraField struct {
	Key        string
	Label      string
	ShortLabel string
	Min        int
	Max        int
}

// Type is one equipment kind with its capability record.
type Type struct {
	Key         string
	Label       string
	HasWeight   bool
	WeightLabel string
	IsDuration  bool
	Extra       *ExtraField
}

// Types is the fixed enumeration, in declared order. Order matters: extra
// field resolution takes the first match.
var Types = []Type{
	{Key: "Barra", Label: "Barra"},
	{Key: "Paralelas", Label: "Paralelas"},
	{Key: "Anillas", Label: "Anillas", Extra: &ExtraField{
		Key:        "ring_height",
		Label:      "Nivel de anillas",
		ShortLabel: "Nivel",
		Min:        1,
		Max:        14,
	}},
	{Key: "1 Mancuerna", Label: "1 Manc.", HasWeight: true, WeightLabel: "Mancuerna (kg)"},
	{Key: "2 Mancuernas", Label: "2 Manc.", HasWeight: true, WeightLabel: "C/manc. (kg)"},
	{Key: "Lastre", Label: "Lastre", HasWeight: true, WeightLabel: "Lastre (kg)"},
	{Key: "Duración", Label: "Duración", IsDuration: true},
}

const durationKey = "Duración"

// HasWeight reports whether any selected equipment requires recording weight.
func HasWeight(tags []string) bool {
	for _, t := range Types {
		if t.HasWeight && contains(tags, t.Key) {
			return true
		}
	}
	return false
}

// HasDuration reports whether the exercise is measured by duration instead
// of reps.
func HasDuration(tags []string) bool {
	return contains(tags, durationKey)
}

// ExtraFieldFor returns the active extra-field descriptor, or nil. When
// several selected tags declare one, the first match in declared order wins.
func ExtraFieldFor(tags []string) *ExtraField {
	for _, t := range Types {
		if t.Extra != nil && contains(tags, t.Key) {
			return t.Extra
		}
	}
	return nil
}

// WeightColumnLabel resolves the weight column header.
// Priority: Lastre > 2 Mancuernas > 1 Mancuerna, then a generic label.
// The priority is fixed so the label never depends on tag insertion order.
func WeightColumnLabel(tags []string) string {
	switch {
	case contains(tags, "Lastre"):
		return "Lastre (kg)"
	case contains(tags, "2 Mancuernas"):
		return "C/manc. (kg)"
	case contains(tags, "1 Mancuerna"):
		return "Manc. (kg)"
	default:
		return "Peso (kg)"
	}
}

// FormatDuration renders seconds as "M:SS" when at least a minute, else "Ss".
func FormatDuration(totalSeconds int) string {
	m := totalSeconds / 60
	s := totalSeconds % 60
	if m > 0 {
		return fmt.Sprintf("%d:%02d", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// Summary is a short readable description of the equipment selection.
func Summary(tags []string) string {
	if len(tags) == 0 {
		return "Peso corporal"
	}
	out := tags[0]
	for _, t := range tags[1:] {
		out += " + " + t
	}
	return out
}

func contains(tags []string, key string) bool {
	for _, t := range tags {
		if t == key {
			return true
		}
	}
	return false
}
