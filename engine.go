package calcforge

import (
	"context"
	"sync"
	"time"
)

// EvaluateRequest is the transport-facing input for evaluating one
// expression in the context of a sheet line.
type EvaluateRequest struct {
	Expression string `json:"expression"`
	SheetID    int    `json:"sheet_id"` // 0-based index in workbook order
	LineNumber int    `json:"line_number"`
}

// EvaluateResponse is the transport-facing result. A non-empty Error
// means Value and Unit are empty.
type EvaluateResponse struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
	Error string `json:"error,omitempty"`
}

// Engine schedules evaluation passes over a Calculator. Edits are
// debounced so a burst collapses into one pass, and a pass superseded
// by a newer edit is cancelled before its results are committed, so
// stale values never overwrite fresh ones. The workbook is owned
// exclusively by the engine's single in-flight pass.
type Engine struct {
	calc     *Calculator
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	cancel  context.CancelFunc
	pending map[string]bool
	running sync.WaitGroup

	// OnPass, when set, receives each committed pass result. It runs on
	// the engine's evaluation goroutine.
	OnPass func(sheet string, lines []Line)
}

// NewEngine wraps a Calculator in a debounced scheduler.
func NewEngine(calc *Calculator) *Engine {
	return &Engine{
		calc:     calc,
		debounce: calc.opts.debounce,
		pending:  make(map[string]bool),
	}
}

// NotifyEdit records that a sheet's text changed and (re)arms the
// debounce timer. Any pass already in flight is cancelled; its results
// are discarded rather than committed.
func (e *Engine) NotifyEdit(sheet string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending[sheet] = true
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce, e.firePass)
}

func (e *Engine) firePass() {
	e.mu.Lock()
	sheets := make([]string, 0, len(e.pending))
	for name := range e.pending {
		sheets = append(sheets, name)
	}
	e.pending = make(map[string]bool)
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.running.Add(1)
	e.mu.Unlock()

	defer e.running.Done()
	for _, name := range sheets {
		lines, err := e.calc.EvaluateSheet(ctx, name)
		if err != nil {
			return // superseded or gone; a newer pass will cover it
		}
		if e.OnPass != nil {
			e.OnPass(name, lines)
		}
	}
}

// Flush runs all pending work synchronously, bypassing the debounce
// timer. It is the programmatic equivalent of waiting the interval out.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	sheets := make([]string, 0, len(e.pending))
	for name := range e.pending {
		sheets = append(sheets, name)
	}
	e.pending = make(map[string]bool)
	e.mu.Unlock()

	for _, name := range sheets {
		lines, err := e.calc.EvaluateSheet(ctx, name)
		if err != nil {
			return err
		}
		if e.OnPass != nil {
			e.OnPass(name, lines)
		}
	}
	return nil
}

// Close cancels any in-flight pass and waits for it to unwind.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.mu.Unlock()
	e.running.Wait()
}

// Evaluate services a transport evaluate request: the expression is
// previewed in place of the addressed line, without committing.
func (e *Engine) Evaluate(ctx context.Context, req EvaluateRequest) EvaluateResponse {
	sheet, ok := e.calc.book.SheetAt(req.SheetID)
	if !ok {
		return EvaluateResponse{Error: "unknown sheet id"}
	}
	v, err := e.calc.Preview(ctx, sheet.Name(), req.LineNumber, req.Expression)
	if err != nil {
		return EvaluateResponse{Error: err.Error()}
	}
	return responseFor(v)
}

func responseFor(v Value) EvaluateResponse {
	switch v.Kind {
	case Error:
		return EvaluateResponse{Error: v.String()}
	case Unit:
		return EvaluateResponse{Value: FormatNumber(v.Num), Unit: v.Label}
	default:
		return EvaluateResponse{Value: v.String()}
	}
}
