// Package lexer turns ws source text into a flat token stream.
// Comments (# to end of line) and all whitespace, including newlines,
// are skipped; the stream always ends with an EOF token.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aweary/compiler/pkg/diag"
	"github.com/aweary/compiler/pkg/source"
)

// Lex tokenizes the whole file. It stops at the first lexical error and
// returns it as a diagnostic-carrying error.
func Lex(file *source.File) ([]Token, error) {
	l := &lexer{file: file, src: file.Content}
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == KindEOF {
			return tokens, nil
		}
	}
}

type lexer struct {
	file *source.File
	src  string
	pos  int // byte offset of the next unread rune
}

// peek returns the rune at the current position without consuming it.
func (l *lexer) peek() (rune, int) {
	if l.pos >= len(l.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(l.src[l.pos:])
}

func (l *lexer) advance(size int) {
	l.pos += size
}

func (l *lexer) next() (Token, error) {
	l.skipTrivia()

	start := l.pos
	ch, size := l.peek()
	if size == 0 {
		return l.token(KindEOF, start), nil
	}

	switch {
	case isDigit(ch):
		return l.number(start)
	case isIdentStart(ch):
		l.advance(size)
		return l.identifier(start), nil
	}

	l.advance(size)
	switch ch {
	case '"':
		return l.stringLiteral(start)
	case '=':
		if next, nsize := l.peek(); next == '=' {
			l.advance(nsize)
			return l.token(KindEq, start), nil
		} else if next == '>' {
			l.advance(nsize)
			return l.token(KindArrow, start), nil
		}
		return l.token(KindAssign, start), nil
	case '&':
		if next, nsize := l.peek(); next == '&' {
			l.advance(nsize)
			return l.token(KindAnd, start), nil
		}
		return Token{}, l.errorf(start, l.pos, "unexpected character %q", ch)
	case '|':
		if next, nsize := l.peek(); next == '|' {
			l.advance(nsize)
			return l.token(KindOr, start), nil
		}
		return Token{}, l.errorf(start, l.pos, "unexpected character %q", ch)
	case '.':
		return l.token(KindDot, start), nil
	case ',':
		return l.token(KindComma, start), nil
	case '(':
		return l.token(KindLParen, start), nil
	case ')':
		return l.token(KindRParen, start), nil
	case '{':
		return l.token(KindLBrace, start), nil
	case '}':
		return l.token(KindRBrace, start), nil
	case '[':
		return l.token(KindLBracket, start), nil
	case ']':
		return l.token(KindRBracket, start), nil
	case '*':
		return l.token(KindStar, start), nil
	case '+':
		return l.token(KindPlus, start), nil
	case '-':
		return l.token(KindMinus, start), nil
	case '/':
		return l.token(KindSlash, start), nil
	case ':':
		return l.token(KindColon, start), nil
	case '<':
		return l.token(KindLess, start), nil
	case '>':
		return l.token(KindGreater, start), nil
	}
	return Token{}, l.errorf(start, l.pos, "unexpected character %q", ch)
}

// skipTrivia consumes whitespace, newlines, and # comments.
func (l *lexer) skipTrivia() {
	for {
		ch, size := l.peek()
		switch {
		case size == 0:
			return
		case ch == '#':
			for {
				ch, size = l.peek()
				if size == 0 || ch == '\n' {
					break
				}
				l.advance(size)
			}
		case unicode.IsSpace(ch):
			l.advance(size)
		default:
			return
		}
	}
}

// number lexes a numeric literal: decimal digits with optional `_`
// separators and at most one decimal point.
func (l *lexer) number(start int) (Token, error) {
	sawDot := false
	for {
		ch, size := l.peek()
		switch {
		case isDigit(ch) || ch == '_':
			l.advance(size)
		case ch == '.':
			// A dot must be followed by a digit to belong to the number;
			// otherwise it is member access on a numeric value.
			if next, _ := l.peekAt(l.pos + size); !isDigit(next) {
				return l.token(KindNumber, start), nil
			}
			if sawDot {
				l.advance(size)
				return Token{}, l.errorf(start, l.pos, "number has multiple decimal points")
			}
			sawDot = true
			l.advance(size)
		default:
			return l.token(KindNumber, start), nil
		}
	}
}

func (l *lexer) peekAt(pos int) (rune, int) {
	if pos >= len(l.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(l.src[pos:])
}

// identifier lexes an identifier or keyword. The first rune has already
// been consumed.
func (l *lexer) identifier(start int) Token {
	for {
		ch, size := l.peek()
		if !isIdentPart(ch) {
			break
		}
		l.advance(size)
	}
	text := l.src[start:l.pos]
	if kind, ok := keywords[text]; ok {
		return Token{Kind: kind, Text: text, Span: source.NewSpan(start, l.pos)}
	}
	return Token{Kind: KindIdent, Text: text, Span: source.NewSpan(start, l.pos)}
}

// stringLiteral lexes a double-quoted single-line string. The opening
// quote has already been consumed.
func (l *lexer) stringLiteral(start int) (Token, error) {
	for {
		ch, size := l.peek()
		if size == 0 || ch == '\n' {
			return Token{}, l.errorf(start, l.pos, "unterminated string literal")
		}
		l.advance(size)
		if ch == '"' {
			return l.token(KindString, start), nil
		}
	}
}

func (l *lexer) token(kind Kind, start int) Token {
	return Token{
		Kind: kind,
		Text: l.src[start:l.pos],
		Span: source.NewSpan(start, l.pos),
	}
}

func (l *lexer) errorf(start, end int, format string, args ...interface{}) error {
	return diag.NewError(diag.Errorf(source.NewSpan(start, end), format, args...))
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || unicode.IsDigit(ch)
}

// StringValue returns the contents of a string token without its quotes.
func StringValue(tok Token) string {
	text := tok.Text
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		return text[1 : len(text)-1]
	}
	return text
}

// NumberValue returns the numeric text of a number token with `_`
// separators stripped, ready for strconv parsing.
func NumberValue(tok Token) string {
	return strings.ReplaceAll(tok.Text, "_", "")
}
