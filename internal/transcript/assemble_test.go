package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssembleNormalizesWhitespace(t *testing.T) {
	t.Parallel()

	got := Assemble([]string{" hello", "world.", "\nfrom", "the  podium"})
	require.Equal(t, "hello world. from the podium", got)
}

func TestAssembleEmptyInput(t *testing.T) {
	t.Parallel()

	require.Empty(t, Assemble(nil))
}

func TestAssembleSkipsWhitespaceOnlySegments(t *testing.T) {
	t.Parallel()

	require.Equal(t, "hello", Assemble([]string{"  ", "\n\t", "hello"}))
}

func TestWordCount(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, WordCount("   "))
	require.Equal(t, 4, WordCount(" Good morning.\nCorps  members. "))
}
