package calcforge

import (
	"math"
	"strconv"
	"strings"
)

// Kind discriminates the variants of a Value.
type Kind int

const (
	// None is the value of blank and comment lines. It renders as "".
	None Kind = iota
	// Number is a plain numeric result.
	Number
	// Unit is a numeric magnitude tagged with a display label
	// (unit names, currency codes, "Days", "Business Days").
	Unit
	// Text carries results that are inherently string-shaped:
	// timecodes, formatted dates, aspect-ratio solutions.
	Text
	// Error is a line-scoped evaluation failure. Referencing an
	// erroring line from elsewhere resolves to 0.
	Error
)

// Value is the tagged result type shared by every subsystem. Evaluation
// never panics across a line boundary: each line produces a Value, and
// failures are the Error variant, not an exception.
type Value struct {
	Kind  Kind
	Num   float64 // Number and Unit magnitude
	Label string  // Unit display label; on Error, an optional distinct prefix
	Str   string  // Text content or Error message
}

// NumberValue returns a Number-kind Value.
func NumberValue(f float64) Value { return Value{Kind: Number, Num: f} }

// UnitValue returns a Unit-kind Value with the given display label.
func UnitValue(f float64, label string) Value {
	return Value{Kind: Unit, Num: f, Label: label}
}

// TextValue returns a Text-kind Value.
func TextValue(s string) Value { return Value{Kind: Text, Str: s} }

// ErrorValue returns an Error-kind Value carrying a human-readable message.
// The message should not include the "ERROR:" prefix; String adds it.
func ErrorValue(msg string) Value { return Value{Kind: Error, Str: msg} }

// IsNone reports whether the value is the blank-line variant.
func (v Value) IsNone() bool { return v.Kind == None }

// IsError reports whether the value is an evaluation failure.
func (v Value) IsError() bool { return v.Kind == Error }

// Magnitude unwraps the value to its bare number. Unit and Number values
// yield their magnitude, Text values that look numeric are parsed, and
// everything else resolves to 0. This is the leniency the reference
// resolver depends on: partially written sheets still evaluate.
func (v Value) Magnitude() float64 {
	switch v.Kind {
	case Number, Unit:
		return v.Num
	case Text:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil {
			return f
		}
	}
	return 0
}

// String renders the value the way it appears on a worksheet line.
func (v Value) String() string {
	switch v.Kind {
	case Number:
		return FormatNumber(v.Num)
	case Unit:
		return FormatNumber(v.Num) + " " + v.Label
	case Text:
		return v.Str
	case Error:
		if v.Label != "" {
			return v.Label + ": " + v.Str
		}
		return "ERROR: " + v.Str
	}
	return ""
}

// FormatNumber renders a float the way the engine displays numeric
// results: rounded to 6 decimal places, with whole floats coerced to
// integers so no trailing ".0" leaks into downstream token matching.
func FormatNumber(f float64) string {
	r := math.Round(f*1e6) / 1e6
	if r == math.Trunc(r) && math.Abs(r) < 1e15 {
		return strconv.FormatInt(int64(r), 10)
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
