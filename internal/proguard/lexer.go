package proguard

import (
	"strings"
)

// TokenType defines the type of a token
type TokenType int

const (
	TokenEOF       TokenType = iota
	TokenDirective           // -keep, -printmapping, ...
	TokenWord                // names, patterns, keywords, paths
	TokenPunct               // { } ( ) ; , ! @
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenDirective:
		return "Directive"
	case TokenWord:
		return "Word"
	case TokenPunct:
		return "Punct"
	default:
		return "Unknown"
	}
}

// Token represents a lexical token
type Token struct {
	Type   TokenType
	Value  string
	Quoted bool
	Line   int
	Col    int
}

func (t Token) is(typ TokenType, value string) bool {
	return t.Type == typ && t.Value == value && !t.Quoted
}

func (t Token) describe() string {
	if t.Type == TokenEOF {
		return "end of input"
	}
	return "'" + t.Value + "'"
}

const punctuation = "{}();,!@"

// Lex performs lexical analysis on rule text and returns a sequence of
// tokens terminated by TokenEOF.
func Lex(input string) ([]Token, error) {
	var tokens []Token
	line, col := 1, 1
	i := 0

	advance := func() {
		if input[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		i++
	}

	for i < len(input) {
		c := input[i]
		switch {
		case isWhitespace(c):
			advance()

		case c == '#':
			for i < len(input) && input[i] != '\n' {
				advance()
			}

		case c == '\'' || c == '"':
			startLine, startCol := line, col
			quote := c
			advance()
			var sb strings.Builder
			for i < len(input) && input[i] != quote {
				if input[i] == '\n' {
					return nil, &SyntaxError{Line: startLine, Col: startCol, Msg: "unterminated quoted name"}
				}
				sb.WriteByte(input[i])
				advance()
			}
			if i >= len(input) {
				return nil, &SyntaxError{Line: startLine, Col: startCol, Msg: "unterminated quoted name"}
			}
			advance() // closing quote
			tokens = append(tokens, Token{Type: TokenWord, Value: sb.String(), Quoted: true, Line: startLine, Col: startCol})

		case strings.IndexByte(punctuation, c) >= 0:
			tokens = append(tokens, Token{Type: TokenPunct, Value: string(c), Line: line, Col: col})
			advance()

		case c == '-' && i+1 < len(input) && isLetter(input[i+1]):
			startCol := col
			start := i
			advance()
			for i < len(input) && isLetter(input[i]) {
				advance()
			}
			tokens = append(tokens, Token{Type: TokenDirective, Value: input[start:i], Line: line, Col: startCol})

		case isWordChar(c):
			startCol := col
			start := i
			for i < len(input) && isWordChar(input[i]) {
				advance()
			}
			tokens = append(tokens, Token{Type: TokenWord, Value: input[start:i], Line: line, Col: startCol})

		default:
			return nil, &SyntaxError{Line: line, Col: col, Token: string(c), Msg: "unexpected character"}
		}
	}

	tokens = append(tokens, Token{Type: TokenEOF, Line: line, Col: col})
	return tokens, nil
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isWordChar(c byte) bool {
	switch {
	case isLetter(c), c >= '0' && c <= '9', c >= 0x80:
		return true
	}
	return strings.IndexByte("_$.*?%<>[]/\\:-+=~", c) >= 0
}
