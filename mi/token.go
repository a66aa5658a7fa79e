package mi

import (
	"fmt"
	"strings"
	"unicode"
)

type TokenKind int

const (
	UnknownToken = TokenKind(iota)
	StringToken
	VarToken
	KeyEqualToken
	KeyLeftBraceToken
	KeyRightBraceToken
	KeyLeftBracketToken
	KeyRightBracketToken
	KeyCommaToken
	KeyCaretToken
	KeyPlusToken
	KeyTildeToken
	KeyAtToken
	KeyAmpersandToken
	KeyStarToken
)

var (
	punctuations = map[rune]TokenKind{
		'=': KeyEqualToken,
		'{': KeyLeftBraceToken,
		'}': KeyRightBraceToken,
		'[': KeyLeftBracketToken,
		']': KeyRightBracketToken,
		',': KeyCommaToken,
		'^': KeyCaretToken,
		'+': KeyPlusToken,
		'~': KeyTildeToken,
		'@': KeyAtToken,
		'&': KeyAmpersandToken,
		'*': KeyStarToken,
	}

	tokenKindNames = map[TokenKind]string{
		UnknownToken:         "UNKNOWN",
		StringToken:          "STRING",
		VarToken:             "VAR",
		KeyEqualToken:        "KEY_EQUAL",
		KeyLeftBraceToken:    "KEY_LEFT_BRACE",
		KeyRightBraceToken:   "KEY_RIGHT_BRACE",
		KeyLeftBracketToken:  "KEY_LEFT_BRACKET",
		KeyRightBracketToken: "KEY_RIGHT_BRACKET",
		KeyCommaToken:        "KEY_COMMA",
		KeyCaretToken:        "KEY_CARET",
		KeyPlusToken:         "KEY_PLUS",
		KeyTildeToken:        "KEY_TILDE",
		KeyAtToken:           "KEY_AT",
		KeyAmpersandToken:    "KEY_AMPERSAND",
		KeyStarToken:         "KEY_STAR",
	}
)

func (kind TokenKind) String() string {
	name, ok := tokenKindNames[kind]
	if !ok {
		return fmt.Sprintf("TokenKind(%d)", int(kind))
	}
	return name
}

type Token struct {
	Kind TokenKind
	Text string
}

func (token Token) String() string {
	if token.Kind == StringToken {
		return fmt.Sprintf("%s(%q)", token.Kind, token.Text)
	}
	return fmt.Sprintf("%s(%s)", token.Kind, token.Text)
}

type lexState int

const (
	idleState = lexState(iota)
	angleBlockState
	parenBlockState
	stringState
	varState
)

// Tokenize splits a single mi output line (or a gdb value string) into
// tokens.  Tokenize never fails: an unterminated string / block / word simply
// absorbs the remainder of the line.
func Tokenize(line string) []Token {
	tokens := []Token{}

	state := idleState
	escaped := false
	text := &strings.Builder{}

	flush := func(kind TokenKind) {
		value := text.String()
		if kind == VarToken {
			value = strings.TrimSpace(value)
		}
		tokens = append(tokens, Token{Kind: kind, Text: value})
		text.Reset()
	}

	runes := []rune(line)
	for idx := 0; idx < len(runes); idx++ {
		char := runes[idx]

		switch state {
		case idleState:
			if char == '"' {
				state = stringState
			} else if char == '<' {
				text.WriteRune(char)
				state = angleBlockState
			} else if char == '(' {
				text.WriteRune(char)
				state = parenBlockState
			} else if kind, ok := punctuations[char]; ok {
				tokens = append(tokens, Token{Kind: kind, Text: string(char)})
			} else if !unicode.IsSpace(char) {
				text.WriteRune(char)
				state = varState
			}

		case stringState:
			if escaped {
				escaped = false
				if char == 'n' {
					text.WriteRune('\n')
				} else {
					text.WriteRune(char)
				}
			} else if char == '\\' {
				escaped = true
			} else if char == '"' {
				flush(StringToken)
				state = idleState
			} else {
				text.WriteRune(char)
			}

		case angleBlockState, parenBlockState:
			if escaped {
				escaped = false
				if char == 'n' {
					text.WriteRune('\n')
				} else {
					text.WriteRune(char)
				}
			} else if char == '\\' {
				escaped = true
			} else if (char == '>' && state == angleBlockState) ||
				(char == ')' && state == parenBlockState) {

				text.WriteRune(char)
				flush(VarToken)
				state = idleState
			} else {
				text.WriteRune(char)
			}

		case varState:
			if unicode.IsSpace(char) ||
				char == '=' ||
				char == ',' ||
				char == '{' ||
				char == '}' {

				flush(VarToken)
				state = idleState
				idx-- // reprocess the terminator in the idle state
			} else {
				text.WriteRune(char)
			}
		}
	}

	switch state {
	case stringState:
		flush(StringToken)
	case angleBlockState, parenBlockState, varState:
		flush(VarToken)
	}

	return tokens
}
