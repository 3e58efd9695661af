package calcforge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_DebounceCollapsesEdits(t *testing.T) {
	book := NewWorkbook()
	ws, err := book.AddSheet("Main")
	require.NoError(t, err)
	ws.SetText("1 + 1")

	calc := New(book, WithCurrencyEndpoint(""), WithDebounce(30*time.Millisecond))
	engine := NewEngine(calc)
	defer engine.Close()

	var mu sync.Mutex
	passes := 0
	done := make(chan struct{}, 8)
	engine.OnPass = func(sheet string, lines []Line) {
		mu.Lock()
		passes++
		mu.Unlock()
		done <- struct{}{}
	}

	// A burst of edits inside the debounce window yields one pass.
	for i := 0; i < 5; i++ {
		engine.NotifyEdit("Main")
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("no pass fired")
	}
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, passes)
}

func TestEngine_FlushBypassesTimer(t *testing.T) {
	book := NewWorkbook()
	ws, err := book.AddSheet("Main")
	require.NoError(t, err)
	ws.SetText("2 + 3")

	calc := New(book, WithCurrencyEndpoint(""), WithDebounce(time.Hour))
	engine := NewEngine(calc)
	defer engine.Close()

	var got []Line
	engine.OnPass = func(sheet string, lines []Line) { got = lines }

	engine.NotifyEdit("Main")
	require.NoError(t, engine.Flush(context.Background()))

	require.Len(t, got, 1)
	assert.Equal(t, "5", got[0].Value.String())

	v, ok := ws.Value(1)
	require.True(t, ok)
	assert.Equal(t, "5", v.String())
}

func TestEngine_FlushWithNothingPending(t *testing.T) {
	calc := New(NewWorkbook(), WithCurrencyEndpoint(""))
	engine := NewEngine(calc)
	defer engine.Close()
	assert.NoError(t, engine.Flush(context.Background()))
}

func TestEngine_Evaluate(t *testing.T) {
	book := NewWorkbook()
	ws, err := book.AddSheet("Main")
	require.NoError(t, err)
	ws.SetText("10")

	calc := New(book, WithCurrencyEndpoint(""))
	engine := NewEngine(calc)
	defer engine.Close()
	require.NoError(t, engine.Flush(context.Background()))

	resp := engine.Evaluate(context.Background(), EvaluateRequest{
		Expression: "LN1 * 4",
		SheetID:    0,
		LineNumber: 2,
	})
	assert.Empty(t, resp.Error)
	assert.Equal(t, "40", resp.Value)
}

func TestEngine_EvaluateUnitResult(t *testing.T) {
	book := NewWorkbook()
	_, err := book.AddSheet("Main")
	require.NoError(t, err)

	calc := New(book, WithCurrencyEndpoint(""))
	engine := NewEngine(calc)
	defer engine.Close()

	resp := engine.Evaluate(context.Background(), EvaluateRequest{
		Expression: "12 inches to feet",
		SheetID:    0,
		LineNumber: 1,
	})
	assert.Empty(t, resp.Error)
	assert.Equal(t, "1", resp.Value)
	assert.Equal(t, "ft", resp.Unit)
}

func TestEngine_EvaluateErrors(t *testing.T) {
	calc := New(NewWorkbook(), WithCurrencyEndpoint(""))
	engine := NewEngine(calc)
	defer engine.Close()

	resp := engine.Evaluate(context.Background(), EvaluateRequest{SheetID: 3})
	assert.Equal(t, "unknown sheet id", resp.Error)
}

func TestEngine_EvaluateErrorValue(t *testing.T) {
	book := NewWorkbook()
	_, err := book.AddSheet("Main")
	require.NoError(t, err)

	calc := New(book, WithCurrencyEndpoint(""))
	engine := NewEngine(calc)
	defer engine.Close()

	resp := engine.Evaluate(context.Background(), EvaluateRequest{
		Expression: "1/0",
		SheetID:    0,
		LineNumber: 1,
	})
	assert.Contains(t, resp.Error, "ERROR:")
	assert.Empty(t, resp.Value)
}
