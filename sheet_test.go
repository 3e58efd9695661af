package calcforge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkbookAddSheet(t *testing.T) {
	b := NewWorkbook()
	ws, err := b.AddSheet("Budget")
	require.NoError(t, err)
	assert.Equal(t, "Budget", ws.Name())
	assert.Equal(t, 1, b.Len())

	_, err = b.AddSheet("")
	assert.Error(t, err)

	_, err = b.AddSheet("budget")
	assert.Error(t, err, "names are unique case-insensitively")
}

func TestWorkbookLookup(t *testing.T) {
	b := NewWorkbook()
	_, err := b.AddSheet("Budget")
	require.NoError(t, err)

	ws, ok := b.Sheet("BUDGET")
	require.True(t, ok)
	assert.Equal(t, "Budget", ws.Name())

	_, ok = b.Sheet("missing")
	assert.False(t, ok)

	ws, ok = b.SheetAt(0)
	require.True(t, ok)
	assert.Equal(t, "Budget", ws.Name())
	_, ok = b.SheetAt(1)
	assert.False(t, ok)
}

func TestWorkbookRemoveSheet(t *testing.T) {
	b := NewWorkbook()
	_, _ = b.AddSheet("A")
	_, _ = b.AddSheet("B")

	assert.True(t, b.RemoveSheet("a"))
	assert.False(t, b.RemoveSheet("a"))
	assert.Equal(t, []string{"B"}, b.Names())
}

func TestWorksheetVersionAndLines(t *testing.T) {
	b := NewWorkbook()
	ws, _ := b.AddSheet("A")

	v := ws.Version()
	ws.SetText("1 + 1\n2 + 2")
	assert.Equal(t, v+1, ws.Version())

	// Setting identical text does not bump the version.
	ws.SetText("1 + 1\n2 + 2")
	assert.Equal(t, v+1, ws.Version())

	assert.Equal(t, []string{"1 + 1", "2 + 2"}, ws.Lines())

	ws.SetText("1 + 1\r\n2 + 2\r\n3")
	assert.Equal(t, []string{"1 + 1", "2 + 2", "3"}, ws.Lines())
}

func TestWorkbookSync(t *testing.T) {
	b := NewWorkbook()
	_, _ = b.AddSheet("Keep")
	_, _ = b.AddSheet("Drop")

	b.Sync(map[string]string{
		"Keep": "1 + 1",
		"New":  "2 + 2",
	})

	assert.Equal(t, 2, b.Len())
	_, ok := b.Sheet("Drop")
	assert.False(t, ok)

	keep, ok := b.Sheet("Keep")
	require.True(t, ok)
	assert.Equal(t, "1 + 1", keep.Text())

	added, ok := b.Sheet("New")
	require.True(t, ok)
	assert.Equal(t, "2 + 2", added.Text())
}
