package calcforge

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// HighlightRange is one advisory syntax-highlight span. Ranges are
// byte-indexed into the requested text and never overlap; the UI layer
// consumes them as-is.
type HighlightRange struct {
	Start      int    `json:"start"`
	Length     int    `json:"length"`
	Class      string `json:"class"`
	Color      string `json:"color"`
	LineNumber int    `json:"ln_number,omitempty"`
	SheetName  string `json:"sheet_name,omitempty"`
}

// classColors is the fixed class→color assignment.
var classColors = map[string]string{
	"comment":   "#6a9955",
	"line-ref":  "#4fc1ff",
	"sheet-ref": "#c586c0",
	"function":  "#dcdcaa",
	"timecode":  "#ce9178",
	"number":    "#b5cea8",
}

var (
	highlightTimecode = regexp.MustCompile(`\b\d{1,2}[:.]\d{2}[:.]\d{2}[:.]\d{2}\b`)
	highlightFunction = regexp.MustCompile(`\b([A-Za-z][A-Za-z0-9]*)\(`)
	highlightNumber   = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
)

// Highlight produces ordered highlight ranges for one line of text.
// Comment lines are a single comment-class range. Reference tokens
// carry the referenced line number (and sheet name for cross-sheet
// references) so the editor can link them.
func Highlight(text string) []HighlightRange {
	return HighlightWithMarker(text, DefaultCommentMarker)
}

// HighlightWithMarker is Highlight with a configurable comment marker.
func HighlightWithMarker(text, marker string) []HighlightRange {
	if strings.HasPrefix(strings.TrimSpace(text), marker) {
		return []HighlightRange{span(0, len(text), "comment", 0, "")}
	}

	var ranges []HighlightRange
	claimed := make([]bool, len(text))

	add := func(start, length int, class string, ln int, sheet string) {
		if length <= 0 {
			return
		}
		for i := start; i < start+length; i++ {
			if claimed[i] {
				return
			}
		}
		for i := start; i < start+length; i++ {
			claimed[i] = true
		}
		ranges = append(ranges, span(start, length, class, ln, sheet))
	}

	for _, m := range crossRefPattern.FindAllStringSubmatchIndex(text, -1) {
		sheet := text[m[2]:m[3]]
		ln, _ := strconv.Atoi(text[m[4]:m[5]])
		add(m[0], m[1]-m[0], "sheet-ref", ln, sheet)
	}
	for _, m := range lineRefPattern.FindAllStringSubmatchIndex(text, -1) {
		ln, _ := strconv.Atoi(text[m[2]:m[3]])
		add(m[0], m[1]-m[0], "line-ref", ln, "")
	}
	for _, m := range highlightTimecode.FindAllStringIndex(text, -1) {
		add(m[0], m[1]-m[0], "timecode", 0, "")
	}
	for _, m := range highlightFunction.FindAllStringSubmatchIndex(text, -1) {
		add(m[2], m[3]-m[2], "function", 0, "")
	}
	for _, m := range highlightNumber.FindAllStringIndex(text, -1) {
		add(m[0], m[1]-m[0], "number", 0, "")
	}

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	return ranges
}

func span(start, length int, class string, ln int, sheet string) HighlightRange {
	return HighlightRange{
		Start:      start,
		Length:     length,
		Class:      class,
		Color:      classColors[class],
		LineNumber: ln,
		SheetName:  sheet,
	}
}
