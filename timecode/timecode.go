// Package timecode implements frame-rate-aware SMPTE timecode math:
// parsing, formatting, frame conversion (including NTSC drop-frame and
// the exact 24000/1001 rate), and left-to-right expression arithmetic
// in frame space.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Error is the timecode-specific failure type. The evaluation layer
// prefixes it distinctly so the UI can style timecode errors apart from
// generic expression errors.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errorf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// rate classification; NTSC rates are matched with a small tolerance so
// 29.97, 29.970 and 23.98 inputs all land on the exact rational rates.
const rateEpsilon = 0.005

func isRate(fps, target float64) bool {
	return math.Abs(fps-target) < rateEpsilon
}

// Parse splits a timecode into its four components. Accepted separators
// are ":" and "."; they are normalized to ":" and exactly four
// components are required. Component range checks against the frame
// rate happen in ToFrames, which knows the rate.
func Parse(text string) (h, m, s, f int, err error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(text), ".", ":")
	parts := strings.Split(normalized, ":")
	if len(parts) != 4 {
		return 0, 0, 0, 0, errorf("invalid timecode %q: expected HH:MM:SS:FF", text)
	}
	nums := make([]int, 4)
	for i, p := range parts {
		n, convErr := strconv.Atoi(strings.TrimSpace(p))
		if convErr != nil || n < 0 {
			return 0, 0, 0, 0, errorf("invalid timecode %q: bad component %q", text, p)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nums[3], nil
}

// IsTimecode reports whether text parses as a four-component timecode.
func IsTimecode(text string) bool {
	_, _, _, _, err := Parse(text)
	return err == nil
}

// ValidateRate rejects frame rates the engine cannot count at.
func ValidateRate(fps float64) error {
	if fps <= 0 || fps > 1000 {
		return errorf("invalid frame rate %v", fps)
	}
	return nil
}

// ToFrames converts a timecode string to an absolute frame count at the
// given rate. The frame component must be below ceil(fps).
func ToFrames(text string, fps float64) (int64, error) {
	if err := ValidateRate(fps); err != nil {
		return 0, err
	}
	h, m, s, f, err := Parse(text)
	if err != nil {
		return 0, err
	}
	if f >= int(math.Ceil(fps)) {
		return 0, errorf("frame %d out of range for %v fps", f, fps)
	}

	switch {
	case isRate(fps, 29.97):
		return dropFrameToFrames(h, m, s, f, 30, 2), nil
	case isRate(fps, 59.94):
		return dropFrameToFrames(h, m, s, f, 60, 4), nil
	case isRate(fps, 23.976) || isRate(fps, 23.98):
		return ntscFilmToFrames(h, m, s, f), nil
	default:
		base := int64(math.Round(fps))
		seconds := int64(h)*3600 + int64(m)*60 + int64(s)
		return seconds*base + int64(f), nil
	}
}

// dropFrameToFrames implements the NTSC drop-frame identity: count at
// the integer base, then subtract the labels skipped at every non-10th
// minute boundary (2 per minute at 29.97, 4 at 59.94).
func dropFrameToFrames(h, m, s, f int, base, dropPerMin int64) int64 {
	frames := int64(h)*3600*base + int64(m)*60*base + int64(s)*base + int64(f)
	totalMinutes := int64(h)*60 + int64(m)
	drop := dropPerMin * (totalMinutes - totalMinutes/10)
	return frames - drop
}

// ntscFilmToFrames converts at the exact rate 24000/1001 via total
// seconds. Using the rational rate, not a literal 23.976 multiplier,
// keeps long timecodes from drifting.
func ntscFilmToFrames(h, m, s, f int) int64 {
	seconds := int64(h)*3600 + int64(m)*60 + int64(s)
	return roundedFilmBase(seconds) + int64(f)
}

// roundedFilmBase is round(seconds * 24000 / 1001) in exact integer
// arithmetic.
func roundedFilmBase(seconds int64) int64 {
	return (seconds*24000*2 + 1001) / 2002
}

// FromFrames converts an absolute frame count back to a timecode string
// at the given rate. Negative counts render with a leading "-" and an
// otherwise-normal HH:MM:SS:FF.
func FromFrames(frames int64, fps float64) (string, error) {
	if err := ValidateRate(fps); err != nil {
		return "", err
	}
	neg := frames < 0
	abs := frames
	if neg {
		abs = -abs
	}

	var h, m, s, f int64
	switch {
	case isRate(fps, 29.97):
		h, m, s, f = dropFrameFromFrames(abs, 30, 2)
	case isRate(fps, 59.94):
		h, m, s, f = dropFrameFromFrames(abs, 60, 4)
	case isRate(fps, 23.976) || isRate(fps, 23.98):
		h, m, s, f = ntscFilmFromFrames(abs)
	default:
		base := int64(math.Round(fps))
		f = abs % base
		s = (abs / base) % 60
		m = (abs / (base * 60)) % 60
		h = abs / (base * 3600)
	}

	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%02d:%02d:%02d:%02d", sign, h, m, s, f), nil
}

// dropFrameFromFrames inverts dropFrameToFrames: add the dropped labels
// back, then decompose at the integer base. framesPerMinute and
// framesPerTenMinutes are the dropped-label-adjusted block sizes.
func dropFrameFromFrames(frames, base, dropPerMin int64) (h, m, s, f int64) {
	framesPerMinute := base*60 - dropPerMin
	framesPerTen := base*600 - dropPerMin*9

	tens := frames / framesPerTen
	rem := frames % framesPerTen
	adjusted := frames + dropPerMin*9*tens
	if rem > dropPerMin {
		adjusted += dropPerMin * ((rem - dropPerMin) / framesPerMinute)
	}

	f = adjusted % base
	s = (adjusted / base) % 60
	m = (adjusted / (base * 60)) % 60
	h = adjusted / (base * 3600)
	return h, m, s, f
}

// ntscFilmFromFrames recovers total seconds at 24000/1001, then carries
// any frame overflow across the second boundary before decomposing.
func ntscFilmFromFrames(frames int64) (h, m, s, f int64) {
	seconds := frames * 1001 / 24000
	frame := frames - roundedFilmBase(seconds)
	for frame < 0 && seconds > 0 {
		seconds--
		frame = frames - roundedFilmBase(seconds)
	}
	for frame >= 24 {
		seconds++
		frame = frames - roundedFilmBase(seconds)
	}
	h = seconds / 3600
	m = (seconds / 60) % 60
	s = seconds % 60
	return h, m, s, frame
}

// TokenToFrames converts one expression token to a frame count: a
// timecode string at the given rate, or a bare number taken as a frame
// count directly.
func TokenToFrames(token string, fps float64) (int64, error) {
	token = strings.Trim(strings.TrimSpace(token), `"'`)
	if token == "" {
		return 0, errorf("empty timecode token")
	}
	if strings.ContainsAny(token, ":.") && IsTimecode(token) {
		return ToFrames(token, fps)
	}
	if n, err := strconv.ParseFloat(token, 64); err == nil {
		return int64(math.Round(n)), nil
	}
	return ToFrames(token, fps)
}

// EvaluateExpression evaluates a timecode arithmetic expression at the
// given rate. Tokens are timecodes or bare numbers; operators are
// + - * / applied strictly left to right with no precedence, all in
// frame space. The result is formatted back to a timecode.
func EvaluateExpression(fps float64, expression string) (string, error) {
	frames, err := EvaluateFrames(fps, expression)
	if err != nil {
		return "", err
	}
	return FromFrames(frames, fps)
}

// EvaluateFrames is EvaluateExpression without the final formatting; it
// returns the raw frame count.
func EvaluateFrames(fps float64, expression string) (int64, error) {
	tokens := splitTokens(expression)
	if len(tokens) == 0 {
		return 0, errorf("empty timecode expression")
	}
	if len(tokens)%2 == 0 {
		return 0, errorf("malformed timecode expression %q", expression)
	}

	acc, err := TokenToFrames(tokens[0], fps)
	if err != nil {
		return 0, err
	}
	for i := 1; i < len(tokens); i += 2 {
		op := tokens[i]
		operand, err := TokenToFrames(tokens[i+1], fps)
		if err != nil {
			return 0, err
		}
		switch op {
		case "+":
			acc += operand
		case "-":
			acc -= operand
		case "*":
			acc *= operand
		case "/":
			if operand == 0 {
				return 0, errorf("timecode division by zero")
			}
			acc /= operand
		default:
			return 0, errorf("unknown operator %q in timecode expression", op)
		}
	}
	return acc, nil
}

// splitTokens inserts spaces around the four operators and fields the
// result, so "01:00:00:00+00:30:00:00" and the spaced form tokenize
// identically.
func splitTokens(expression string) []string {
	spaced := expression
	for _, op := range []string{"+", "-", "*", "/"} {
		spaced = strings.ReplaceAll(spaced, op, " "+op+" ")
	}
	return strings.Fields(spaced)
}
