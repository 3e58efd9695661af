// Package datecalc implements the D() date calculator: flexible date
// parsing, calendar arithmetic, and business-day (Mon–Fri) arithmetic.
package datecalc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseError reports date text that matched none of the accepted forms.
type ParseError struct {
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable date %q", e.Text)
}

// textualLayouts is the ordered list of textual formats tried after the
// fixed-length digit forms; first success wins.
var textualLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"1/2/2006",
	"1.2.2006",
}

// ParseDate parses date text. Digit-only inputs of exactly 6, 7 or 8
// characters are read as M D YYYY, M DD YYYY and MM DD YYYY; anything
// else runs through the textual layout list. Unparseable input is a
// hard error, never a silent fallthrough.
func ParseDate(text string) (time.Time, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return time.Time{}, &ParseError{Text: text}
	}

	if isDigits(trimmed) {
		if t, ok := parseDigitDate(trimmed); ok {
			return t, nil
		}
		return time.Time{}, &ParseError{Text: text}
	}

	for _, layout := range textualLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ParseError{Text: text}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// parseDigitDate splits a 6/7/8 digit run into month, day, year and
// validates 1 ≤ month ≤ 12 and 1 ≤ day ≤ 31 before handing the parts to
// the time package (which catches per-month overflow like Feb 31).
func parseDigitDate(s string) (time.Time, bool) {
	var monthStr, dayStr, yearStr string
	switch len(s) {
	case 6:
		monthStr, dayStr, yearStr = s[0:1], s[1:2], s[2:]
	case 7:
		monthStr, dayStr, yearStr = s[0:1], s[1:3], s[3:]
	case 8:
		monthStr, dayStr, yearStr = s[0:2], s[2:4], s[4:]
	default:
		return time.Time{}, false
	}

	month, _ := strconv.Atoi(monthStr)
	day, _ := strconv.Atoi(dayStr)
	year, _ := strconv.Atoi(yearStr)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders a date the way the engine displays it.
func FormatDate(t time.Time) string {
	return t.Format("January 02, 2006")
}

// IsBusinessDay reports whether t falls Monday through Friday.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// AddBusinessDays steps one calendar day at a time in the sign's
// direction, consuming a day of the count only on weekdays. The result
// therefore always lands on a weekday.
func AddBusinessDays(t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for n > 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(t) {
			n--
		}
	}
	return t
}

// BusinessDaysBetween counts weekdays over the inclusive closed
// interval [a, b], normalizing order first.
func BusinessDaysBetween(a, b time.Time) int {
	if a.After(b) {
		a, b = b, a
	}
	count := 0
	for d := a; !d.After(b); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			count++
		}
	}
	return count
}

// CalendarDaysBetween returns the whole-day span between two dates,
// order-normalized.
func CalendarDaysBetween(a, b time.Time) int {
	if a.After(b) {
		a, b = b, a
	}
	return int(b.Sub(a).Hours() / 24)
}

// ResultKind discriminates what a D() expression produced.
type ResultKind int

const (
	// ResultDate is a single calendar date.
	ResultDate ResultKind = iota
	// ResultDays is a day count between two dates.
	ResultDays
)

// Result is the outcome of evaluating a D() expression.
type Result struct {
	Kind     ResultKind
	Date     time.Time
	Days     int
	Business bool
}

// Evaluate handles the parenthesized content of a D() call: a single
// date, date ± N days, or date − date. A W marker attached to the
// operator ("W+", "W-") selects the business-day path; without it the
// arithmetic is plain calendar days.
func Evaluate(expression string) (Result, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return Result{}, &ParseError{Text: expression}
	}

	opIdx := strings.IndexAny(expression, "+-")
	if opIdx < 0 {
		t, err := ParseDate(expression)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: ResultDate, Date: t}, nil
	}

	op := expression[opIdx]
	left := expression[:opIdx]
	right := strings.TrimSpace(expression[opIdx+1:])

	business := false
	leftTrimmed := strings.TrimSpace(left)
	if len(leftTrimmed) > 0 {
		if last := leftTrimmed[len(leftTrimmed)-1]; last == 'W' || last == 'w' {
			business = true
			leftTrimmed = strings.TrimSpace(leftTrimmed[:len(leftTrimmed)-1])
		}
	}
	if trailer := strings.ToUpper(right); strings.HasSuffix(trailer, " W") {
		business = true
		right = strings.TrimSpace(right[:len(right)-2])
	}

	base, err := ParseDate(leftTrimmed)
	if err != nil {
		return Result{}, err
	}

	if n, convErr := strconv.Atoi(right); convErr == nil {
		if op == '-' {
			n = -n
		}
		if business {
			return Result{Kind: ResultDate, Date: AddBusinessDays(base, n), Business: true}, nil
		}
		return Result{Kind: ResultDate, Date: base.AddDate(0, 0, n)}, nil
	}

	other, err := ParseDate(right)
	if err != nil {
		return Result{}, err
	}
	if op != '-' {
		return Result{}, fmt.Errorf("cannot add two dates: %q", expression)
	}
	if business {
		return Result{Kind: ResultDays, Days: BusinessDaysBetween(base, other), Business: true}, nil
	}
	return Result{Kind: ResultDays, Days: CalendarDaysBetween(base, other)}, nil
}
