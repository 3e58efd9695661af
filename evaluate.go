package calcforge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/chad-ld/calcforge/convert"
	"github.com/chad-ld/calcforge/datecalc"
	"github.com/chad-ld/calcforge/timecode"
)

// ErrCircularReference reports a cycle among forward-looking ranges
// (below/cg-below or forward list entries that end up referring back).
var ErrCircularReference = errors.New("circular reference")

// Calculator evaluates worksheets against a workbook. It owns the
// compiled-expression cache and the currency converter; it is not safe
// for concurrent use on the same workbook; the Engine serializes
// passes.
type Calculator struct {
	book     *Workbook
	opts     *Options
	arith    *arithmeticEvaluator
	currency *convert.CurrencyConverter
}

// New builds a Calculator over a workbook.
func New(book *Workbook, opts ...Option) *Calculator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	copts := []convert.CurrencyOption{convert.WithEndpoint(o.currencyEndpoint)}
	if o.currencyTimeout > 0 {
		copts = append(copts, convert.WithTimeout(o.currencyTimeout))
	}
	if o.staticRates != nil {
		copts = append(copts, convert.WithStaticRates(o.staticRates))
	}
	if o.httpClient != nil {
		copts = append(copts, convert.WithHTTPClient(o.httpClient))
	}

	return &Calculator{
		book:     book,
		opts:     o,
		arith:    newArithmeticEvaluator(),
		currency: convert.NewCurrencyConverter(copts...),
	}
}

// Workbook returns the calculator's workbook.
func (c *Calculator) Workbook() *Workbook { return c.book }

// EvaluateSheet runs one top-to-bottom pass over a named worksheet and
// commits the resulting line values so other sheets can reference them.
// A cancelled context aborts before commit, leaving the previously
// committed values in place.
func (c *Calculator) EvaluateSheet(ctx context.Context, name string) ([]Line, error) {
	sheet, ok := c.book.Sheet(name)
	if !ok {
		return nil, fmt.Errorf("no worksheet named %q", name)
	}
	p := c.newPass(ctx, sheet, sheet.Lines())
	lines, err := p.run()
	if err != nil {
		return nil, err
	}
	sheet.commit(p.values)
	return lines, nil
}

// EvaluateAll evaluates every worksheet in insertion order.
func (c *Calculator) EvaluateAll(ctx context.Context) (map[string][]Line, error) {
	out := make(map[string][]Line, c.book.Len())
	for _, name := range c.book.Names() {
		lines, err := c.EvaluateSheet(ctx, name)
		if err != nil {
			return nil, err
		}
		out[name] = lines
	}
	return out, nil
}

// Preview evaluates an expression as if it replaced the given 1-based
// line of a sheet, without committing anything. This backs the
// evaluate request/response interface used by the transport layer.
func (c *Calculator) Preview(ctx context.Context, sheetName string, lineNumber int, expression string) (Value, error) {
	sheet, ok := c.book.Sheet(sheetName)
	if !ok {
		return Value{}, fmt.Errorf("no worksheet named %q", sheetName)
	}
	lines := append([]string(nil), sheet.Lines()...)
	if lineNumber < 1 {
		lineNumber = 1
	}
	for len(lines) < lineNumber {
		lines = append(lines, "")
	}
	lines[lineNumber-1] = expression

	p := c.newPass(ctx, sheet, lines)
	if _, err := p.run(); err != nil {
		return Value{}, err
	}
	return p.results[lineNumber-1], nil
}

type lineState int

const (
	stateNone lineState = iota
	stateBusy
	stateDone
)

// pass is the per-evaluation scratch state: one sheet's lines, the
// value map being built, and the memo/cycle bookkeeping for eager
// forward evaluation.
type pass struct {
	calc    *Calculator
	ctx     context.Context
	sheet   *Worksheet
	lines   []string
	values  map[int]Value
	results []Value
	state   []lineState
	cycle   map[int]bool
}

func (c *Calculator) newPass(ctx context.Context, sheet *Worksheet, lines []string) *pass {
	return &pass{
		calc:    c,
		ctx:     ctx,
		sheet:   sheet,
		lines:   lines,
		values:  make(map[int]Value, len(lines)),
		results: make([]Value, len(lines)),
		state:   make([]lineState, len(lines)),
		cycle:   make(map[int]bool),
	}
}

func (p *pass) run() ([]Line, error) {
	for i := range p.lines {
		if err := p.ctx.Err(); err != nil {
			return nil, err
		}
		p.valueAt(i)
	}

	out := make([]Line, len(p.lines))
	for i := range p.lines {
		v := p.results[i]
		if p.cycle[i] {
			v = ErrorValue(ErrCircularReference.Error())
			p.results[i] = v
			p.values[i+1] = v
		}
		out[i] = Line{ID: i + 1, Raw: p.lines[i], Value: v}
	}
	return out, nil
}

// valueAt evaluates line i (0-based) once, memoizing the result and
// committing it into the pass's value map before any later line reads
// it.
func (p *pass) valueAt(i int) Value {
	if i < 0 || i >= len(p.lines) {
		return Value{}
	}
	switch p.state[i] {
	case stateDone:
		return p.results[i]
	case stateBusy:
		return ErrorValue(ErrCircularReference.Error())
	}

	p.state[i] = stateBusy
	v := p.evalLine(i)
	p.state[i] = stateDone
	p.results[i] = v
	if !v.IsNone() {
		p.values[i+1] = v
	}
	return v
}

func (p *pass) isComment(i int) bool {
	return strings.HasPrefix(strings.TrimSpace(p.lines[i]), p.calc.opts.commentMarker)
}

// Special-form patterns, tried in a fixed order; first match wins.
var (
	datePattern       = regexp.MustCompile(`^(?i)D\((.*)\)$`)
	tcPattern         = regexp.MustCompile(`^(?i)TC\(\s*(\d+(?:\.\d+)?)\s*,\s*(.*?)\s*\)$`)
	arCallPattern     = regexp.MustCompile(`^(?i)AR\(\s*([^,]+?)\s*,\s*([^,]+?)\s*\)$`)
	conversionPattern = regexp.MustCompile(`^(?i)(-?\d[\d,]*(?:\.\d+)?)\s+(.+?)\s+to\s+(.+)$`)
	truncatePattern   = regexp.MustCompile(`^(?i)(?:truncate|tr)\((.*),\s*(\d+)\s*\)$`)
	statCallPattern   = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]*)\(\s*(.*?)\s*\)$`)
)

// evalLine dispatches one line through the special-form chain:
// blank/comment, D(), TC(), AR(), then the inner chain shared with
// truncate (conversions, truncate, statistics, generic arithmetic).
func (p *pass) evalLine(i int) Value {
	raw := strings.TrimSpace(p.lines[i])
	if raw == "" || p.isComment(i) {
		return Value{}
	}

	if m := datePattern.FindStringSubmatch(raw); m != nil {
		return p.evalDate(m[1])
	}
	if m := tcPattern.FindStringSubmatch(raw); m != nil {
		return p.evalTimecode(m[1], m[2])
	}
	if m := arCallPattern.FindStringSubmatch(raw); m != nil {
		return p.evalAspect(m[1], m[2])
	}
	return p.evalInner(i, raw)
}

// evalInner is the tail of the chain; truncate re-enters it for its
// inner expression.
func (p *pass) evalInner(i int, exprText string) Value {
	if v, ok := p.tryConversion(exprText); ok {
		return v
	}
	if m := truncatePattern.FindStringSubmatch(exprText); m != nil {
		return p.evalTruncate(i, m[1], m[2])
	}
	if fn, arg, ok := matchStatCall(exprText); ok {
		return p.evalStat(i, fn, arg)
	}
	return p.evalArithmetic(exprText)
}

func matchStatCall(s string) (StatFunc, string, bool) {
	m := statCallPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, "", false
	}
	fn, ok := statFuncNames[strings.ToLower(m[1])]
	if !ok {
		return 0, "", false
	}
	return fn, m[2], true
}

func (p *pass) refs() refContext {
	return refContext{book: p.calc.book, current: p.sheet, local: p.values}
}

// errorValueFor converts a domain error into a line-scoped Error value.
// Timecode errors carry a distinct prefix so the UI can style them.
func errorValueFor(err error) Value {
	var tcErr *timecode.Error
	if errors.As(err, &tcErr) {
		return Value{Kind: Error, Label: "TC ERROR", Str: tcErr.Msg}
	}
	return ErrorValue(err.Error())
}

func (p *pass) evalDate(inner string) Value {
	result, err := datecalc.Evaluate(inner)
	if err != nil {
		return errorValueFor(err)
	}
	switch result.Kind {
	case datecalc.ResultDate:
		return TextValue(datecalc.FormatDate(result.Date))
	case datecalc.ResultDays:
		label := "Days"
		if result.Business {
			label = "Business Days"
		}
		return UnitValue(float64(result.Days), label)
	}
	return ErrorValue("unrecognized date expression")
}

// evalTimecode handles TC(fps, ...): a lone timecode yields its frame
// count as a number, a lone number yields a timecode, and an arithmetic
// expression yields a timecode. LN references inside the argument are
// resolved to frame counts first.
func (p *pass) evalTimecode(fpsText, inner string) Value {
	fps, err := strconv.ParseFloat(fpsText, 64)
	if err != nil {
		return errorValueFor(&timecode.Error{Msg: fmt.Sprintf("invalid frame rate %q", fpsText)})
	}
	inner = p.refs().resolve(strings.TrimSpace(inner))

	if strings.ContainsAny(inner, "+-*/") {
		result, err := timecode.EvaluateExpression(fps, inner)
		if err != nil {
			return errorValueFor(err)
		}
		return TextValue(result)
	}

	token := strings.Trim(inner, `"' `)
	if timecode.IsTimecode(token) {
		frames, err := timecode.ToFrames(token, fps)
		if err != nil {
			return errorValueFor(err)
		}
		return NumberValue(float64(frames))
	}

	frames, err := timecode.TokenToFrames(token, fps)
	if err != nil {
		return errorValueFor(err)
	}
	formatted, err := timecode.FromFrames(frames, fps)
	if err != nil {
		return errorValueFor(err)
	}
	return TextValue(formatted)
}

func (p *pass) evalAspect(original, target string) Value {
	solved, err := SolveAspectRatio(original, target)
	if err != nil {
		return errorValueFor(err)
	}
	return TextValue(solved)
}

// tryConversion attempts the unit path and then the currency path for
// "<number> <name> to <name>" lines. Not-applicable conversions report
// no match so the chain falls through.
func (p *pass) tryConversion(exprText string) (Value, bool) {
	m := conversionPattern.FindStringSubmatch(exprText)
	if m == nil {
		return Value{}, false
	}
	magnitude, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return Value{}, false
	}

	if res, err := convert.Units(magnitude, m[2], m[3]); err == nil {
		return UnitValue(res.Magnitude, res.Label), true
	}
	if res, err := p.calc.currency.Convert(p.ctx, magnitude, m[2], m[3]); err == nil {
		return UnitValue(res.Amount, res.Code), true
	}
	return Value{}, false
}

// evalTruncate evaluates the inner expression through the rest of the
// chain, then rounds to the requested decimals. Zero decimals coerces
// to an integer so no trailing ".0" breaks later numeric-token
// matching.
func (p *pass) evalTruncate(i int, exprText, decimalsText string) Value {
	decimals, err := strconv.Atoi(decimalsText)
	if err != nil || decimals < 0 {
		return ErrorValue(fmt.Sprintf("invalid decimal count %q", decimalsText))
	}

	v := p.evalInner(i, strings.TrimSpace(exprText))
	if v.Kind != Number && v.Kind != Unit {
		if v.IsError() {
			return v
		}
		return ErrorValue("truncate requires a numeric expression")
	}
	scale := math.Pow(10, float64(decimals))
	v.Num = math.Round(v.Num*scale) / scale
	return v
}

func (p *pass) evalStat(i int, fn StatFunc, arg string) Value {
	if fn == StatMeanFPS {
		return p.evalMeanFPS(i, arg)
	}

	spec, err := ParseRangeSpec(arg)
	if err != nil {
		return ErrorValue(err.Error())
	}
	nums, timecodes, err := p.gather(i, spec)
	if err != nil {
		return ErrorValue(err.Error())
	}

	if len(timecodes) > 0 && (fn == StatMin || fn == StatMax || fn == StatMean) {
		if len(nums) > 0 {
			return ErrorValue("cannot mix timecode and numeric values")
		}
		return p.timecodeAggregate(fn, timecodes, p.calc.opts.referenceFPS)
	}

	v, err := aggregate(fn, nums)
	if err != nil {
		return ErrorValue(err.Error())
	}
	return v
}

// evalMeanFPS handles meanfps(fps, range): every value in the range is
// converted to frames at the given rate (timecodes exactly, numbers as
// frame counts), the frame mean is rounded, and the result is rendered
// as a timecode at the same rate.
func (p *pass) evalMeanFPS(i int, arg string) Value {
	parts := strings.SplitN(arg, ",", 2)
	if len(parts) != 2 {
		return ErrorValue("meanfps requires a frame rate and a range: meanfps(fps, range)")
	}
	fps, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return errorValueFor(&timecode.Error{Msg: fmt.Sprintf("invalid frame rate %q", parts[0])})
	}
	spec, err := ParseRangeSpec(parts[1])
	if err != nil {
		return ErrorValue(err.Error())
	}
	nums, timecodes, err := p.gather(i, spec)
	if err != nil {
		return ErrorValue(err.Error())
	}

	var frames []int64
	for _, tc := range timecodes {
		f, err := timecode.ToFrames(tc, fps)
		if err != nil {
			return errorValueFor(err)
		}
		frames = append(frames, f)
	}
	for _, n := range nums {
		frames = append(frames, int64(math.Round(n)))
	}
	if len(frames) == 0 {
		return ErrorValue("no values in range")
	}

	total := int64(0)
	for _, f := range frames {
		total += f
	}
	mean := int64(math.Round(float64(total) / float64(len(frames))))
	formatted, err := timecode.FromFrames(mean, fps)
	if err != nil {
		return errorValueFor(err)
	}
	return TextValue(formatted)
}

func (p *pass) timecodeAggregate(fn StatFunc, timecodes []string, fps float64) Value {
	frames := make([]int64, 0, len(timecodes))
	for _, tc := range timecodes {
		f, err := timecode.ToFrames(tc, fps)
		if err != nil {
			return errorValueFor(err)
		}
		frames = append(frames, f)
	}

	var result int64
	switch fn {
	case StatMin:
		result = frames[0]
		for _, f := range frames[1:] {
			if f < result {
				result = f
			}
		}
	case StatMax:
		result = frames[0]
		for _, f := range frames[1:] {
			if f > result {
				result = f
			}
		}
	case StatMean:
		total := int64(0)
		for _, f := range frames {
			total += f
		}
		result = int64(math.Round(float64(total) / float64(len(frames))))
	}

	formatted, err := timecode.FromFrames(result, fps)
	if err != nil {
		return errorValueFor(err)
	}
	return TextValue(formatted)
}

// gather resolves a range to the numeric and timecode values of its
// successfully evaluated lines. Forward lines are evaluated eagerly and
// memoized; hitting a line that is already mid-evaluation is a cycle.
// Failed and non-numeric lines are excluded, never treated as zero.
func (p *pass) gather(i int, spec RangeSpec) (nums []float64, timecodes []string, err error) {
	for _, idx := range spec.lineIndexes(i, len(p.lines), p.isComment) {
		if idx == i {
			continue
		}
		if p.state[idx] == stateBusy {
			p.cycle[idx] = true
			return nil, nil, ErrCircularReference
		}
		v := p.valueAt(idx)
		switch v.Kind {
		case Number, Unit:
			nums = append(nums, v.Num)
		case Text:
			if timecode.IsTimecode(v.Str) {
				timecodes = append(timecodes, v.Str)
			} else if f, parseErr := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); parseErr == nil {
				nums = append(nums, f)
			}
		}
	}
	return nums, timecodes, nil
}

// evalArithmetic is the generic tail: resolve references, map ^ onto
// the exponent operator, promote integer literals to floats, and run
// the restricted evaluator.
func (p *pass) evalArithmetic(exprText string) Value {
	resolved := p.refs().resolve(exprText)
	resolved = strings.ReplaceAll(resolved, "^", "**")
	resolved = floatifyLiterals(resolved)

	f, err := p.calc.arith.Evaluate(resolved)
	if err != nil {
		return ErrorValue(err.Error())
	}
	return NumberValue(f)
}
