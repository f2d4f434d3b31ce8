package rowstore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Normalize maps a Go value onto the cell types every backend round-trips:
// string, float64, bool or nil.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, string, float64, bool:
		return x
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// NormalizeRow applies Normalize to every cell.
func NormalizeRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = Normalize(v)
	}
	return out
}

// Text renders a cell the way it would be displayed: integral numbers have
// no decimal point and nil is blank.
func Text(v any) string {
	switch x := Normalize(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// Number reports the numeric value of a cell. Blank and non-numeric text is
// not a number.
func Number(v any) (float64, bool) {
	switch x := Normalize(v).(type) {
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// LooseEqual compares two cells so that 7 and "7" match while "7" and "07"
// do not.
func LooseEqual(a, b any) bool {
	na, aNum := Normalize(a).(float64)
	nb, bNum := Normalize(b).(float64)
	switch {
	case aNum && bNum:
		return na == nb
	case aNum:
		f, ok := Number(b)
		return ok && f == na
	case bNum:
		f, ok := Number(a)
		return ok && f == nb
	default:
		return Text(a) == Text(b)
	}
}

// Key builds a lookup key from cells using their display text.
func Key(parts ...any) string {
	texts := make([]string, len(parts))
	for i, p := range parts {
		texts[i] = Text(p)
	}
	return strings.Join(texts, "_")
}
