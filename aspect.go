package calcforge

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var dimensionPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?|\?)\s*[xX]\s*(\d+(?:\.\d+)?|\?)$`)

// SolveAspectRatio solves AR(original, target): original is a full WxH
// resolution, target has exactly one dimension replaced by "?". The
// unknown dimension is solved from the original's ratio and both
// dimensions are formatted rounded to the nearest integer.
func SolveAspectRatio(original, target string) (string, error) {
	origW, origH, err := parseDimensions(original)
	if err != nil {
		return "", err
	}
	if origW == nil || origH == nil {
		return "", fmt.Errorf("original resolution %q must not contain ?", original)
	}
	if *origH == 0 || *origW == 0 {
		return "", fmt.Errorf("original resolution %q has a zero dimension", original)
	}

	targetW, targetH, err := parseDimensions(target)
	if err != nil {
		return "", err
	}

	ratio := *origW / *origH
	switch {
	case targetW == nil && targetH != nil:
		w := *targetH * ratio
		return formatDimensions(w, *targetH), nil
	case targetH == nil && targetW != nil:
		h := *targetW / ratio
		return formatDimensions(*targetW, h), nil
	case targetW == nil && targetH == nil:
		return "", fmt.Errorf("target %q needs exactly one known dimension", target)
	default:
		return "", fmt.Errorf("target %q has no ? to solve for", target)
	}
}

// parseDimensions reads "WxH" where either part may be "?"; a ? comes
// back as nil.
func parseDimensions(s string) (w, h *float64, err error) {
	m := dimensionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, nil, fmt.Errorf("invalid resolution %q: expected WxH", s)
	}
	parse := func(part string) (*float64, error) {
		if part == "?" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid dimension %q", part)
		}
		return &f, nil
	}
	if w, err = parse(m[1]); err != nil {
		return nil, nil, err
	}
	if h, err = parse(m[2]); err != nil {
		return nil, nil, err
	}
	return w, h, nil
}

func formatDimensions(w, h float64) string {
	return fmt.Sprintf("%dx%d", int64(math.Round(w)), int64(math.Round(h)))
}
