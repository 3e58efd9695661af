package calcforge

import (
	"fmt"
	"sort"
	"strings"
)

// Line is one evaluated worksheet row. IDs are positional: after every
// pass, ID equals the 1-based row index. Lines carry no identity across
// edits; they are rebuilt from the worksheet text at the start of each
// pass.
type Line struct {
	ID    int
	Raw   string
	Value Value
}

// Worksheet is a named, ordered block of formula lines. The raw text is
// the source of truth; the line slice is a lazily rebuilt cache keyed to
// a version counter, and values holds the most recently committed result
// per line id (consumed by cross-sheet references).
type Worksheet struct {
	name string

	text    string
	version uint64

	cacheVersion uint64
	lines        []string

	values map[int]Value
}

// Name returns the worksheet's display name.
func (w *Worksheet) Name() string { return w.name }

// Text returns the worksheet's full raw text.
func (w *Worksheet) Text() string { return w.text }

// SetText replaces the worksheet's text and bumps its version so the
// line cache is rebuilt lazily on next use. Committed values are kept
// until the next evaluation pass replaces them: cross-sheet readers see
// the last committed state, never a half-built one.
func (w *Worksheet) SetText(text string) {
	if w.text == text {
		return
	}
	w.text = text
	w.version++
}

// Lines returns the worksheet's text split into lines, rebuilding the
// cache only when the version has moved since the last split.
func (w *Worksheet) Lines() []string {
	if w.lines == nil || w.cacheVersion != w.version {
		text := strings.ReplaceAll(w.text, "\r\n", "\n")
		w.lines = strings.Split(text, "\n")
		w.cacheVersion = w.version
	}
	return w.lines
}

// Value returns the last committed value for a 1-based line id.
func (w *Worksheet) Value(id int) (Value, bool) {
	v, ok := w.values[id]
	return v, ok
}

// Version returns the worksheet's edit counter.
func (w *Worksheet) Version() uint64 { return w.version }

func (w *Worksheet) commit(values map[int]Value) {
	w.values = values
}

// Workbook is the registry of live worksheets. Name lookup is
// case-insensitive; names must be unique among live sheets. Each sheet
// carries its own version counter so an edit invalidates only that
// sheet's caches, not every sheet's.
type Workbook struct {
	order  []string // lower-cased, insertion order
	sheets map[string]*Worksheet
}

// NewWorkbook returns an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{sheets: make(map[string]*Worksheet)}
}

// AddSheet creates a worksheet with the given name. The name must be
// non-empty and unique case-insensitively among live sheets.
func (b *Workbook) AddSheet(name string) (*Worksheet, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("empty worksheet name")
	}
	key := strings.ToLower(trimmed)
	if _, exists := b.sheets[key]; exists {
		return nil, fmt.Errorf("worksheet %q already exists", trimmed)
	}
	ws := &Worksheet{name: trimmed}
	b.sheets[key] = ws
	b.order = append(b.order, key)
	return ws, nil
}

// Sheet looks a worksheet up by name, case-insensitively.
func (b *Workbook) Sheet(name string) (*Worksheet, bool) {
	ws, ok := b.sheets[strings.ToLower(strings.TrimSpace(name))]
	return ws, ok
}

// SheetAt returns the i-th worksheet in insertion order (0-based).
func (b *Workbook) SheetAt(i int) (*Worksheet, bool) {
	if i < 0 || i >= len(b.order) {
		return nil, false
	}
	return b.sheets[b.order[i]], true
}

// RemoveSheet deletes a worksheet by name. It reports whether a sheet
// was removed.
func (b *Workbook) RemoveSheet(name string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	if _, ok := b.sheets[key]; !ok {
		return false
	}
	delete(b.sheets, key)
	for i, k := range b.order {
		if k == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// Names returns the display names of all live sheets in insertion order.
func (b *Workbook) Names() []string {
	names := make([]string, 0, len(b.order))
	for _, key := range b.order {
		names = append(names, b.sheets[key].name)
	}
	return names
}

// Len returns the number of live worksheets.
func (b *Workbook) Len() int { return len(b.order) }

// Sync replaces every worksheet's text in one call, creating sheets
// that do not exist yet and dropping sheets absent from the input. This
// backs the cross-sheet bulk sync interface; sheets are created in
// sorted name order so reconstruction is deterministic.
func (b *Workbook) Sync(texts map[string]string) {
	names := make([]string, 0, len(texts))
	for name := range texts {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		seen[key] = true
		if ws, ok := b.sheets[key]; ok {
			ws.SetText(texts[name])
			continue
		}
		ws, err := b.AddSheet(name)
		if err != nil {
			continue
		}
		ws.SetText(texts[name])
	}

	for _, key := range append([]string(nil), b.order...) {
		if !seen[key] {
			b.RemoveSheet(key)
		}
	}
}
