package calcforge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveAspectRatio(t *testing.T) {
	got, err := SolveAspectRatio("1920x1080", "?x2000")
	require.NoError(t, err)
	assert.Equal(t, "3556x2000", got)

	got, err = SolveAspectRatio("1920x1080", "1280x?")
	require.NoError(t, err)
	assert.Equal(t, "1280x720", got)

	// Separator case does not matter.
	got, err = SolveAspectRatio("1920X1080", "960 x ?")
	require.NoError(t, err)
	assert.Equal(t, "960x540", got)
}

func TestSolveAspectRatio_RoundsToInteger(t *testing.T) {
	got, err := SolveAspectRatio("16x9", "?x1000")
	require.NoError(t, err)
	assert.Equal(t, "1778x1000", got)
}

func TestSolveAspectRatio_Errors(t *testing.T) {
	_, err := SolveAspectRatio("?x1080", "1280x?")
	assert.Error(t, err, "original must be fully known")

	_, err = SolveAspectRatio("1920x1080", "?x?")
	assert.Error(t, err, "target needs one known dimension")

	_, err = SolveAspectRatio("1920x1080", "1280x720")
	assert.Error(t, err, "target needs a ? to solve for")

	_, err = SolveAspectRatio("1920x0", "?x500")
	assert.Error(t, err, "zero dimension")

	_, err = SolveAspectRatio("widexhigh", "?x500")
	assert.Error(t, err)
}
