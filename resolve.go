package calcforge

import (
	"regexp"
	"strconv"
	"strings"
)

// crossRefPattern matches cross-sheet references like "S.Budget.LN3" or
// "s.shot list.ln12". The sheet segment is everything between "S." and
// the final ".LN<n>", so sheet names may contain spaces.
var crossRefPattern = regexp.MustCompile(`(?i)\bS\.(.+?)\.LN(\d+)\b`)

// lineRefPattern matches same-sheet references like "LN4" or "ln4".
var lineRefPattern = regexp.MustCompile(`(?i)\bLN(\d+)\b`)

// maxResolvePasses caps fixed-point substitution so a resolver bug can
// never loop forever.
const maxResolvePasses = 8

// refContext is what reference substitution needs: the committed values
// of other sheets (through the workbook) and the current pass's values
// for the sheet being evaluated.
type refContext struct {
	book    *Workbook
	current *Worksheet
	local   map[int]Value
}

// resolve rewrites every LN<n> and S.<sheet>.LN<n> token in expr into the
// textual form of the referenced value's numeric magnitude. Unresolved
// references become "0" rather than an error, so partially written
// sheets still evaluate. Substitution repeats until a fixed point, with
// an iteration cap. An expression without reference tokens is returned
// unchanged.
func (rc refContext) resolve(expr string) string {
	for i := 0; i < maxResolvePasses; i++ {
		next := rc.resolveOnce(expr)
		if next == expr {
			return expr
		}
		expr = next
	}
	return expr
}

func (rc refContext) resolveOnce(expr string) string {
	// Cross-sheet tokens first: once they are gone, the plain LN pattern
	// cannot misread the tail of an S. reference.
	expr = crossRefPattern.ReplaceAllStringFunc(expr, func(tok string) string {
		m := crossRefPattern.FindStringSubmatch(tok)
		id, err := strconv.Atoi(m[2])
		if err != nil {
			return "0"
		}
		return FormatNumber(rc.sheetValue(m[1], id))
	})

	expr = lineRefPattern.ReplaceAllStringFunc(expr, func(tok string) string {
		m := lineRefPattern.FindStringSubmatch(tok)
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return "0"
		}
		if v, ok := rc.local[id]; ok {
			return FormatNumber(v.Magnitude())
		}
		return "0"
	})

	return expr
}

// sheetValue reads a committed line value from a named sheet. A
// reference to the sheet currently being evaluated reads the pass's own
// values so self-qualified references stay consistent mid-pass.
func (rc refContext) sheetValue(sheet string, id int) float64 {
	if rc.current != nil && strings.EqualFold(strings.TrimSpace(sheet), rc.current.name) {
		if v, ok := rc.local[id]; ok {
			return v.Magnitude()
		}
		return 0
	}
	ws, ok := rc.book.Sheet(sheet)
	if !ok {
		return 0
	}
	v, ok := ws.Value(id)
	if !ok {
		return 0
	}
	return v.Magnitude()
}

// hasReferences reports whether expr contains any reference token.
func hasReferences(expr string) bool {
	return lineRefPattern.MatchString(expr) || crossRefPattern.MatchString(expr)
}
