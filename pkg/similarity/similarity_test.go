package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	assert.Equal(t, 0, Distance("hola", "hola"))
	assert.Equal(t, 3, Distance("kitten", "sitting"))
	assert.Equal(t, 4, Distance("", "hola"))
	assert.Equal(t, 4, Distance("hola", ""))
	assert.Equal(t, 1, Distance("precio", "precios"))
}

func TestSimilarity_EmptyStringsAreIdentical(t *testing.T) {
	// 0/0 se define como 1: dos cadenas vacías son idénticas.
	assert.Equal(t, 1.0, Similarity("", ""))
}

func TestSimilarity_Range(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("precio", "precio"))
	assert.Equal(t, 0.0, Similarity("", "abcd"))
	assert.InDelta(t, 0.75, Similarity("abcd", "abce"), 1e-9)
}

func TestFindBestTriggerMatch_StrictThreshold(t *testing.T) {
	triggers := []string{"abcd"}

	// similarity("abce","abcd") == 0.75 exactamente: el umbral es estricto.
	_, found := FindBestTriggerMatch("abce", triggers, 0.75)
	assert.False(t, found, "score equal to threshold must NOT match")

	match, found := FindBestTriggerMatch("abce", triggers, 0.74)
	require.True(t, found, "score just above threshold must match")
	assert.Equal(t, "abcd", match)
}

func TestFindBestTriggerMatch_IgnoresShortWords(t *testing.T) {
	_, found := FindBestTriggerMatch("si ok ya", []string{"si", "ok"}, 0.1)
	assert.False(t, found, "words shorter than 4 runes are ignored")
}

func TestFindBestTriggerMatch_AccentFolding(t *testing.T) {
	match, found := FindBestTriggerMatch("cuánto cuesta", []string{"cuanto"}, 0.7)
	require.True(t, found)
	assert.Equal(t, "cuanto", match)
}

func TestFindBestTriggerMatch_DeterministicTieBreak(t *testing.T) {
	// Ambos triggers alcanzan el mismo score: gana el menor lexicográfico.
	for i := 0; i < 20; i++ {
		match, found := FindBestTriggerMatch("precio", []string{"precios", "precioz"}, 0.7)
		require.True(t, found)
		assert.Equal(t, "precios", match)
	}
}

func TestFindBestTriggerMatch_PicksHighestScore(t *testing.T) {
	match, found := FindBestTriggerMatch("horario de atencion", []string{"horarios", "envios"}, 0.7)
	require.True(t, found)
	assert.Equal(t, "horarios", match)
}
