package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextStripsControlCharsButKeepsTabAndNewline(t *testing.T) {
	in := "hello\x00world\tfoo\nbar\x1b"
	got := Text(in, 0)
	require.Equal(t, "helloworld\tfoo\nbar", got)
}

func TestTextCapsLength(t *testing.T) {
	in := strings.Repeat("a", 10)
	got := Text(in, 5)
	require.Equal(t, 5, len([]rune(got)))
}

func TestTextNormalizesToNFC(t *testing.T) {
	decomposed := "é" // e + combining acute accent
	got := Text(decomposed, 0)
	require.Equal(t, "é", got) // precomposed é
}

func TestStatementEvidenceFilePathCaps(t *testing.T) {
	long := strings.Repeat("x", 1000)
	require.LessOrEqual(t, len([]rune(Statement(long))), MaxStatementLen)
	require.LessOrEqual(t, len([]rune(Evidence(long))), MaxEvidenceLen)
	require.LessOrEqual(t, len([]rune(FilePath(long))), MaxFilePathLen)
}

func TestCypherLiteralEscapesBackslashAndQuote(t *testing.T) {
	got := CypherLiteral(`back\slash and "quote"`)
	require.Equal(t, `back\\slash and \"quote\"`, got)
}
