package calcforge

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalText evaluates a single-sheet workbook and returns its lines. Live
// currency lookup is disabled so tests never touch the network.
func evalText(t *testing.T, text string, opts ...Option) []Line {
	t.Helper()
	book := NewWorkbook()
	ws, err := book.AddSheet("Main")
	require.NoError(t, err)
	ws.SetText(text)

	calc := New(book, append([]Option{WithCurrencyEndpoint("")}, opts...)...)
	lines, err := calc.EvaluateSheet(context.Background(), "Main")
	require.NoError(t, err)
	return lines
}

func rendered(lines []Line) []string {
	out := make([]string, len(lines))
	for i, ln := range lines {
		out[i] = ln.Value.String()
	}
	return out
}

func TestEvaluate_Arithmetic(t *testing.T) {
	lines := evalText(t, strings.Join([]string{
		"1 + 2",
		"10 / 4",
		"1/2",
		"2^10",
		"(2 + 3) * 4",
		"sqrt(16)",
	}, "\n"))
	assert.Equal(t, []string{"3", "2.5", "0.5", "1024", "20", "4"}, rendered(lines))
}

func TestEvaluate_BlankAndCommentLines(t *testing.T) {
	lines := evalText(t, "### header\n\n1 + 1")
	assert.Equal(t, []string{"", "", "2"}, rendered(lines))
	assert.True(t, lines[0].Value.IsNone())
	assert.True(t, lines[1].Value.IsNone())
}

func TestEvaluate_DivisionByZeroIsLineScoped(t *testing.T) {
	lines := evalText(t, "1/0\nLN1 + 5")
	assert.True(t, lines[0].Value.IsError())
	assert.Contains(t, lines[0].Value.String(), "ERROR:")
	// Referencing an erroring line reads as 0.
	assert.Equal(t, "5", lines[1].Value.String())
}

func TestEvaluate_LineReferences(t *testing.T) {
	lines := evalText(t, "10\n20\nLN1 + LN2\nln3 * 2")
	assert.Equal(t, []string{"10", "20", "30", "60"}, rendered(lines))
}

func TestEvaluate_ForwardLineReferenceIsZero(t *testing.T) {
	lines := evalText(t, "LN2 + 1\n5")
	assert.Equal(t, "1", lines[0].Value.String())
}

func TestEvaluate_SumRanges(t *testing.T) {
	lines := evalText(t, strings.Join([]string{
		"10",
		"20",
		"30",
		"sum(above)",
		"sum(1-2)",
		"sum(1, 3)",
		"count(above)",
	}, "\n"))
	assert.Equal(t, "60", lines[3].Value.String())
	assert.Equal(t, "30", lines[4].Value.String())
	assert.Equal(t, "40", lines[5].Value.String())
	// count sees every prior numeric line, including the sums.
	assert.Equal(t, "6", lines[6].Value.String())
}

func TestEvaluate_RangesExcludeFailedLines(t *testing.T) {
	lines := evalText(t, "10\n1/0\n20\nsum(1-3)\ncount(1-3)")
	assert.Equal(t, "30", lines[3].Value.String())
	assert.Equal(t, "2", lines[4].Value.String())
}

func TestEvaluate_BelowRangeIsEager(t *testing.T) {
	lines := evalText(t, "sum(below)\n10\nLN2 * 2")
	assert.Equal(t, "30", lines[0].Value.String())
}

func TestEvaluate_CommentGroups(t *testing.T) {
	lines := evalText(t, strings.Join([]string{
		"### shoot days",
		"10",
		"20",
		"sum(cg-above)",
		"### gear",
		"5",
		"sum(cg-above)",
	}, "\n"))
	assert.Equal(t, "30", lines[3].Value.String())
	assert.Equal(t, "5", lines[6].Value.String())
}

func TestEvaluate_GroupBelow(t *testing.T) {
	lines := evalText(t, "sum(cg-below)\n1\n2\n### end\n99")
	assert.Equal(t, "3", lines[0].Value.String())
}

func TestEvaluate_CircularReference(t *testing.T) {
	lines := evalText(t, "sum(below)\nsum(above)")
	require.True(t, lines[0].Value.IsError())
	require.True(t, lines[1].Value.IsError())
	assert.Contains(t, lines[0].Value.String(), "circular reference")
	assert.Contains(t, lines[1].Value.String(), "circular reference")
}

func TestEvaluate_Truncate(t *testing.T) {
	lines := evalText(t, "truncate(10/3, 2)\ntr(10/3, 0)\n2.6\ntr(LN3 * 2, 0)")
	assert.Equal(t, "3.33", lines[0].Value.String())
	assert.Equal(t, "3", lines[1].Value.String())
	assert.Equal(t, "5", lines[3].Value.String())
}

func TestEvaluate_TruncateInvalid(t *testing.T) {
	lines := evalText(t, "truncate(hello world, 2)")
	assert.True(t, lines[0].Value.IsError())
}

func TestEvaluate_UnitConversion(t *testing.T) {
	lines := evalText(t, "12 inches to feet\n5 km to miles\n100 c to f")
	assert.Equal(t, "1 ft", lines[0].Value.String())
	assert.Equal(t, Unit, lines[1].Value.Kind)
	assert.InDelta(t, 3.106856, lines[1].Value.Num, 1e-4)
	assert.Equal(t, "212 °F", lines[2].Value.String())
}

func TestEvaluate_CurrencyConversion(t *testing.T) {
	lines := evalText(t, "100 usd to eur\n1,000 dollars to pounds")
	assert.Equal(t, "92 EUR", lines[0].Value.String())
	assert.Equal(t, "790 GBP", lines[1].Value.String())
}

func TestEvaluate_UnknownConversionFallsThrough(t *testing.T) {
	// "5 apples to oranges" matches the conversion shape but neither
	// converter; it falls through to arithmetic and fails there.
	lines := evalText(t, "5 apples to oranges")
	assert.True(t, lines[0].Value.IsError())
}

func TestEvaluate_TimecodeCalls(t *testing.T) {
	lines := evalText(t, strings.Join([]string{
		`TC(30, "00:01:00:00")`,
		"TC(24, 100)",
		"TC(24, 00:00:01:00 + 00:00:01:00)",
		"TC(30, LN2)",
	}, "\n"))
	assert.Equal(t, "1800", lines[0].Value.String())
	assert.Equal(t, "00:00:04:04", lines[1].Value.String())
	assert.Equal(t, "00:00:02:00", lines[2].Value.String())
	// LN2 resolves to the timecode line's magnitude (0 for text): the
	// reference reads numeric magnitude only.
	assert.Equal(t, "00:00:00:00", lines[3].Value.String())
}

func TestEvaluate_TimecodeErrorPrefix(t *testing.T) {
	lines := evalText(t, `TC(30, "00:00:00:99")`)
	require.True(t, lines[0].Value.IsError())
	assert.True(t, strings.HasPrefix(lines[0].Value.String(), "TC ERROR:"))
}

func TestEvaluate_AspectRatio(t *testing.T) {
	lines := evalText(t, "AR(1920x1080, ?x2000)\nAR(1920x1080, 1280x?)")
	assert.Equal(t, "3556x2000", lines[0].Value.String())
	assert.Equal(t, "1280x720", lines[1].Value.String())
}

func TestEvaluate_DateCalls(t *testing.T) {
	lines := evalText(t, strings.Join([]string{
		"D(July 4, 2023 + 30)",
		"D(July 1, 2023 W- July 15, 2023)",
		"D(July 4, 2023 - July 1, 2023)",
		"D(nonsense)",
	}, "\n"))
	assert.Equal(t, "August 03, 2023", lines[0].Value.String())
	assert.Equal(t, "10 Business Days", lines[1].Value.String())
	assert.Equal(t, "3 Days", lines[2].Value.String())
	assert.True(t, lines[3].Value.IsError())
}

func TestEvaluate_TimecodeStatistics(t *testing.T) {
	lines := evalText(t, strings.Join([]string{
		"TC(30, 1800)",
		"TC(30, 3600)",
		"mean(1-2)",
		"min(1-2)",
		"max(1-2)",
	}, "\n"))
	assert.Equal(t, "00:01:00:00", lines[0].Value.String())
	assert.Equal(t, "00:02:00:00", lines[1].Value.String())
	// Timecode aggregation runs at the reference rate (30 by default).
	assert.Equal(t, "00:01:30:00", lines[2].Value.String())
	assert.Equal(t, "00:01:00:00", lines[3].Value.String())
	assert.Equal(t, "00:02:00:00", lines[4].Value.String())
}

func TestEvaluate_MixedTimecodeAndNumbersFails(t *testing.T) {
	lines := evalText(t, "TC(30, 1800)\n5\nmean(1-2)")
	require.True(t, lines[2].Value.IsError())
	assert.Contains(t, lines[2].Value.String(), "cannot mix")
}

func TestEvaluate_MeanFPS(t *testing.T) {
	lines := evalText(t, "100\n200\nmeanfps(24, 1-2)")
	assert.Equal(t, "00:00:06:06", lines[2].Value.String())
}

func TestEvaluate_MeanFPSWithTimecodes(t *testing.T) {
	lines := evalText(t, "TC(24, 48)\nTC(24, 96)\nmeanfps(24, 1-2)")
	// Frame mean of 48 and 96 is 72.
	assert.Equal(t, "00:00:03:00", lines[2].Value.String())
}

func TestEvaluate_ReferenceFPSOption(t *testing.T) {
	lines := evalText(t, "TC(24, 00:00:01:00 + 0)\nTC(24, 00:00:02:00 + 0)\nmean(1-2)",
		WithReferenceFPS(24))
	assert.Equal(t, "00:00:01:12", lines[2].Value.String())
}

func TestEvaluate_CrossSheet(t *testing.T) {
	book := NewWorkbook()
	rates, err := book.AddSheet("Rates")
	require.NoError(t, err)
	rates.SetText("100")
	main, err := book.AddSheet("Main")
	require.NoError(t, err)
	main.SetText("S.Rates.LN1 * 2\nS.Missing.LN1 + 1")

	calc := New(book, WithCurrencyEndpoint(""))
	out, err := calc.EvaluateAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "200", out["Main"][0].Value.String())
	assert.Equal(t, "1", out["Main"][1].Value.String(), "missing sheets read as 0")
}

func TestEvaluate_CustomCommentMarker(t *testing.T) {
	lines := evalText(t, "// note\n1 + 1", WithCommentMarker("//"))
	assert.True(t, lines[0].Value.IsNone())
	assert.Equal(t, "2", lines[1].Value.String())
}

func TestEvaluate_PreviewDoesNotCommit(t *testing.T) {
	book := NewWorkbook()
	ws, err := book.AddSheet("Main")
	require.NoError(t, err)
	ws.SetText("1 + 1")

	calc := New(book, WithCurrencyEndpoint(""))
	_, err = calc.EvaluateSheet(context.Background(), "Main")
	require.NoError(t, err)

	v, err := calc.Preview(context.Background(), "Main", 1, "2 + 2")
	require.NoError(t, err)
	assert.Equal(t, "4", v.String())

	committed, ok := ws.Value(1)
	require.True(t, ok)
	assert.Equal(t, "2", committed.String())
}

func TestEvaluate_PreviewBeyondSheetEnd(t *testing.T) {
	book := NewWorkbook()
	ws, err := book.AddSheet("Main")
	require.NoError(t, err)
	ws.SetText("10")

	calc := New(book, WithCurrencyEndpoint(""))
	v, err := calc.Preview(context.Background(), "Main", 5, "LN1 * 3")
	require.NoError(t, err)
	assert.Equal(t, "30", v.String())
}

func TestEvaluate_CancelledContextKeepsCommittedValues(t *testing.T) {
	book := NewWorkbook()
	ws, err := book.AddSheet("Main")
	require.NoError(t, err)
	ws.SetText("1 + 1")

	calc := New(book, WithCurrencyEndpoint(""))
	_, err = calc.EvaluateSheet(context.Background(), "Main")
	require.NoError(t, err)

	ws.SetText("5 + 5")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = calc.EvaluateSheet(ctx, "Main")
	require.Error(t, err)

	committed, ok := ws.Value(1)
	require.True(t, ok)
	assert.Equal(t, "2", committed.String(), "aborted passes never commit")
}

func TestEvaluate_UnknownSheet(t *testing.T) {
	calc := New(NewWorkbook(), WithCurrencyEndpoint(""))
	_, err := calc.EvaluateSheet(context.Background(), "nope")
	assert.Error(t, err)
	_, err = calc.Preview(context.Background(), "nope", 1, "1")
	assert.Error(t, err)
}
