package mi

import (
	"testing"

	"github.com/pattyshack/gt/testing/expect"
	"github.com/pattyshack/gt/testing/suite"
)

type TokenizerSuite struct{}

func TestTokenizer(t *testing.T) {
	suite.RunTests(t, &TokenizerSuite{})
}

func (TokenizerSuite) TestAssignment(t *testing.T) {
	expect.Equal(
		t,
		[]Token{
			{Kind: VarToken, Text: "a"},
			{Kind: KeyEqualToken, Text: "="},
			{Kind: VarToken, Text: "1"},
		},
		Tokenize("a=1"))
}

func (TokenizerSuite) TestPunctuation(t *testing.T) {
	kinds := []TokenKind{}
	for _, token := range Tokenize("={}[],^+~@&*") {
		kinds = append(kinds, token.Kind)
	}

	expect.Equal(
		t,
		[]TokenKind{
			KeyEqualToken,
			KeyLeftBraceToken,
			KeyRightBraceToken,
			KeyLeftBracketToken,
			KeyRightBracketToken,
			KeyCommaToken,
			KeyCaretToken,
			KeyPlusToken,
			KeyTildeToken,
			KeyAtToken,
			KeyAmpersandToken,
			KeyStarToken,
		},
		kinds)
}

func (TokenizerSuite) TestWordsAndBlocks(t *testing.T) {
	expect.Equal(
		t,
		[]Token{
			{Kind: VarToken, Text: "x"},
			{Kind: KeyEqualToken, Text: "="},
			{Kind: KeyLeftBraceToken, Text: "{"},
			{Kind: VarToken, Text: "p"},
			{Kind: KeyEqualToken, Text: "="},
			{Kind: VarToken, Text: "(int *)"},
			{Kind: VarToken, Text: "0x0"},
			{Kind: KeyCommaToken, Text: ","},
			{Kind: VarToken, Text: "q"},
			{Kind: KeyEqualToken, Text: "="},
			{Kind: VarToken, Text: "<optimized out>"},
			{Kind: KeyRightBraceToken, Text: "}"},
		},
		Tokenize("x = {p = (int *) 0x0, q = <optimized out>}"))
}

func (TokenizerSuite) TestStringEscapes(t *testing.T) {
	tokens := Tokenize(`"a\"b\\c\nd" "e"`)
	expect.Equal(
		t,
		[]Token{
			{Kind: StringToken, Text: "a\"b\\c\nd"},
			{Kind: StringToken, Text: "e"},
		},
		tokens)

	tokens = Tokenize(`<a\>b>`)
	expect.Equal(t, []Token{{Kind: VarToken, Text: "<a>b>"}}, tokens)
}

func (TokenizerSuite) TestUnterminated(t *testing.T) {
	expect.Equal(
		t,
		[]Token{
			{Kind: VarToken, Text: "msg"},
			{Kind: KeyEqualToken, Text: "="},
			{Kind: StringToken, Text: "abc, def"},
		},
		Tokenize(`msg="abc, def`))

	expect.Equal(
		t,
		[]Token{{Kind: VarToken, Text: "<repeats 5"}},
		Tokenize("<repeats 5"))
}

func (TokenizerSuite) TestEmpty(t *testing.T) {
	expect.Equal(t, 0, len(Tokenize("")))
	expect.Equal(t, 0, len(Tokenize("   \t ")))
}

func (TokenizerSuite) TestTokenString(t *testing.T) {
	expect.Equal(t, `STRING("a\nb")`, Token{Kind: StringToken, Text: "a\nb"}.String())
	expect.Equal(t, "KEY_EQUAL(=)", Token{Kind: KeyEqualToken, Text: "="}.String())
	expect.Equal(t, "TokenKind(99)", TokenKind(99).String())
}
