// Package calcforge is a per-line formula evaluation engine for named
// worksheets. Each line of a sheet is a small formula: generic
// arithmetic with cross-line (LN3) and cross-sheet (S.Budget.LN3)
// references, timecode math (TC), date and business-day arithmetic (D),
// unit and currency conversion ("5 feet to meters"), aspect-ratio
// solving (AR), and statistical aggregates over line ranges
// (sum(above), mean(1-5), meanfps(24, cg-above)).
//
// A pass evaluates one sheet top to bottom, trying a fixed chain of
// special forms per line and falling back to a restricted arithmetic
// evaluator. Every line yields a Value; errors are line-scoped values,
// never a pass abort. Committed values feed later lines and other
// sheets. The Engine debounces edits into single passes and cancels a
// superseded pass before commit.
package calcforge
