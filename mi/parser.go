package mi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	. "github.com/pattyshack/gmi/common"
	"github.com/pattyshack/gmi/tree"
)

var (
	ErrUnexpectedToken = fmt.Errorf("unexpected token")
	ErrUnexpectedEnd   = fmt.Errorf("unexpected end of tokens")
)

// Parser reports grammar problems to its own log entry.  The zero value
// logs to the standard logger.
type Parser struct {
	log *logrus.Entry
}

func NewParser(logger *logrus.Logger) Parser {
	return Parser{
		log: logger.WithField("layer", "mi"),
	}
}

func (parser Parser) entry() *logrus.Entry {
	if parser.log == nil {
		return logrus.StandardLogger().WithField("layer", "mi")
	}
	return parser.log
}

type cursor struct {
	log *logrus.Entry

	tokens []Token
	pos    int

	// The first problem encountered.  Parsing continues best-effort after
	// a problem, every problem is logged.
	err error
}

func newCursor(log *logrus.Entry, tokens []Token) *cursor {
	return &cursor{
		log:    log,
		tokens: tokens,
	}
}

func (p *cursor) peek() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *cursor) next() (Token, bool) {
	token, ok := p.peek()
	if ok {
		p.pos++
	}
	return token, ok
}

func (p *cursor) unexpected(token Token, expected string) {
	err := fmt.Errorf(
		"%w. expected %s, got %s at %d",
		ErrUnexpectedToken,
		expected,
		token,
		p.pos)
	p.log.Error(err)
	if p.err == nil {
		p.err = err
	}
}

func (p *cursor) unexpectedEnd(expected string) {
	err := fmt.Errorf("%w. expected %s", ErrUnexpectedEnd, expected)
	p.log.Error(err)
	if p.err == nil {
		p.err = err
	}
}

// parseAddress mirrors how gdb literals are read as integers: base prefixed
// (0x / 0) or decimal.  Anything else yields 0.
func parseAddress(literal string) VirtualAddress {
	literal = strings.TrimSpace(literal)
	val, err := strconv.ParseInt(literal, 0, 64)
	if err == nil {
		return VirtualAddress(val)
	}

	uval, err := strconv.ParseUint(literal, 0, 64)
	if err == nil {
		return VirtualAddress(uval)
	}

	return 0
}

// ParseVariableData parses a gdb value string (already tokenized) into node.
// It returns the number of consumed tokens.  Malformed input never aborts
// the parse: the returned error describes the first problem while node keeps
// whatever was built.
func ParseVariableData(node *tree.Node, tokens []Token) (int, error) {
	return Parser{}.ParseVariableData(node, tokens)
}

func (parser Parser) ParseVariableData(
	node *tree.Node,
	tokens []Token,
) (
	int,
	error,
) {
	p := newCursor(parser.entry(), tokens)
	p.parseVariableData(node)
	return p.pos, p.err
}

func (p *cursor) parseVariableData(node *tree.Node) {
	token, ok := p.next()
	if !ok {
		p.unexpectedEnd("value")
		return
	}

	if token.Kind == KeyLeftBraceToken {
		p.parseVariableBlock(node)
	} else {
		p.parseScalar(node, token)
	}
}

// parseVariableBlock parses the members following an already consumed '{'.
func (p *cursor) parseVariableBlock(node *tree.Node) {
	for {
		next, ok := p.peek()
		if !ok {
			p.unexpectedEnd("'}'")
			return
		}

		if next.Kind == KeyLeftBraceToken {
			// {{...}, ...}: the inner block's members belong to node.
			p.parseVariableData(node)
		} else {
			p.parseMember(node)
		}

		end, ok := p.next()
		if !ok {
			p.unexpectedEnd("'}'")
			return
		}

		if end.Kind == KeyCommaToken {
			continue
		}

		if end.Kind != KeyRightBraceToken {
			p.unexpected(end, "'}'")
		}
		return
	}
}

// parseMember parses "name [name2] = value", "name," or "name}".  The
// terminating ',' / '}' is left for the caller.
func (p *cursor) parseMember(node *tree.Node) {
	nameToken, _ := p.next()
	name := nameToken.Text

	extra, ok := p.peek()
	if !ok {
		p.unexpectedEnd("'='")
		return
	}

	if extra.Kind == VarToken { // e.g. "static counter = 1"
		p.next()
		name += " " + extra.Text
	}

	separator, ok := p.peek()
	if !ok {
		p.unexpectedEnd("'='")
		return
	}

	switch separator.Kind {
	case KeyEqualToken:
		p.next()
		child := tree.NewNode(name)
		node.AddChild(child)
		p.parseVariableData(child)
	case KeyCommaToken:
	case KeyRightBraceToken:
		// e.g. {<No data fields>}
		if node.ChildCount() == 0 {
			node.Data = nameToken.Text
		}
	default:
		p.unexpected(separator, "'='")
		p.next()
	}
}

// parseScalar handles "LITERAL", "0xADDR <symbol>" and "0xADDR \"string\""
// forms.  A quoted string display value keeps its quotes.
func (p *cursor) parseScalar(node *tree.Node, literal Token) {
	node.Address = parseAddress(literal.Text)

	value := ""
	for {
		next, ok := p.peek()
		if !ok || (next.Kind != VarToken && next.Kind != StringToken) {
			break
		}
		p.next()

		if next.Kind == StringToken {
			value = "\"" + next.Text + "\""
		} else if value == "" {
			value = next.Text
		}
	}

	if value == "" {
		value = literal.Text
	}
	node.Data = value
}

// ParseResults parses an mi results payload, i.e. everything following
// "^done," / "*stopped," etc., into node.  Tuple members become named
// children, list values become unnamed children.
func ParseResults(node *tree.Node, tokens []Token) (int, error) {
	return Parser{}.ParseResults(node, tokens)
}

func (parser Parser) ParseResults(
	node *tree.Node,
	tokens []Token,
) (
	int,
	error,
) {
	p := newCursor(parser.entry(), tokens)

	if len(tokens) > 0 {
		p.parseResultList(node, UnknownToken)
	}

	if token, ok := p.peek(); ok {
		p.unexpected(token, "end of record")
	}

	return p.pos, p.err
}

// parseResultList parses `result ("," result)*` up to (but not including)
// the terminator.  UnknownToken as terminator means end of tokens.
func (p *cursor) parseResultList(node *tree.Node, terminator TokenKind) {
	for {
		if !p.parseResult(node) {
			return
		}

		next, ok := p.peek()
		if !ok {
			if terminator != UnknownToken {
				p.unexpectedEnd(fmt.Sprintf("',' or %s", terminator))
			}
			return
		}

		if next.Kind == terminator {
			return
		}

		if next.Kind != KeyCommaToken {
			p.unexpected(next, "','")
			return
		}
		p.next()
	}
}

func (p *cursor) parseResult(node *tree.Node) bool {
	name, ok := p.next()
	if !ok {
		p.unexpectedEnd("result name")
		return false
	}

	if name.Kind != VarToken {
		p.unexpected(name, "result name")
		return false
	}

	equal, ok := p.next()
	if !ok {
		p.unexpectedEnd("'='")
		return false
	}

	if equal.Kind != KeyEqualToken {
		p.unexpected(equal, "'='")
		return false
	}

	child := tree.NewNode(name.Text)
	node.AddChild(child)
	return p.parseValue(child)
}

func (p *cursor) parseValue(node *tree.Node) bool {
	token, ok := p.next()
	if !ok {
		p.unexpectedEnd("value")
		return false
	}

	switch token.Kind {
	case StringToken, VarToken:
		node.Data = token.Text
		node.Address = parseAddress(token.Text)
		return true

	case KeyLeftBraceToken:
		next, ok := p.peek()
		if ok && next.Kind == KeyRightBraceToken {
			p.next()
			return true
		}

		p.parseResultList(node, KeyRightBraceToken)
		return p.expect(KeyRightBraceToken)

	case KeyLeftBracketToken:
		next, ok := p.peek()
		if !ok {
			p.unexpectedEnd("']'")
			return false
		}

		if next.Kind == KeyRightBracketToken {
			p.next()
			return true
		}

		if p.isResultStart() {
			p.parseResultList(node, KeyRightBracketToken)
		} else {
			p.parseValueList(node)
		}
		return p.expect(KeyRightBracketToken)

	default:
		p.unexpected(token, "value")
		return false
	}
}

func (p *cursor) isResultStart() bool {
	if p.pos+1 >= len(p.tokens) {
		return false
	}
	return p.tokens[p.pos].Kind == VarToken &&
		p.tokens[p.pos+1].Kind == KeyEqualToken
}

func (p *cursor) parseValueList(node *tree.Node) {
	for {
		child := tree.NewNode("")
		node.AddChild(child)
		if !p.parseValue(child) {
			return
		}

		next, ok := p.peek()
		if !ok {
			p.unexpectedEnd("',' or ']'")
			return
		}

		if next.Kind != KeyCommaToken {
			return
		}
		p.next()
	}
}

func (p *cursor) expect(kind TokenKind) bool {
	token, ok := p.next()
	if !ok {
		p.unexpectedEnd(kind.String())
		return false
	}

	if token.Kind != kind {
		p.unexpected(token, kind.String())
		return false
	}

	return true
}

// ParseValue parses a gdb value string such as `{a = 1, b = 0x0}` or
// `@0x601040: {x = 1}` (reference prefix) into a tree.  Returns nil when
// the string holds fewer than two tokens, i.e. plain scalars.
func ParseValue(str string) *tree.Tree {
	return Parser{}.ParseValue(str)
}

func (parser Parser) ParseValue(str string) *tree.Tree {
	tokens := Tokenize(str)
	if len(tokens) < 2 {
		return nil
	}

	result := tree.New()
	root := result.Root()

	if tokens[0].Kind == KeyAtToken {
		root.Address = parseAddress(strings.TrimSuffix(tokens[1].Text, ":"))
		tokens = tokens[2:]
	}

	if len(tokens) > 0 {
		_, err := parser.ParseVariableData(root, tokens)
		if err != nil {
			parser.entry().Warnf("partial value (%s): %s", str, err)
		}
	}

	return result
}
