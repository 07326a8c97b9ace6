package lexer

import (
	"errors"
	"strings"
	"testing"

	"github.com/aweary/compiler/pkg/diag"
	"github.com/aweary/compiler/pkg/source"
)

// lexKinds lexes src and returns the token kinds, excluding the trailing EOF.
func lexKinds(t *testing.T, src string) []Kind {
	t.Helper()
	tokens, err := Lex(source.NewFile("test.ws", src))
	if err != nil {
		t.Fatalf("Lex(%q) failed: %v", src, err)
	}
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != KindEOF {
		t.Fatalf("Lex(%q) did not end with EOF", src)
	}
	kinds := make([]Kind, 0, len(tokens)-1)
	for _, tok := range tokens[:len(tokens)-1] {
		kinds = append(kinds, tok.Kind)
	}
	return kinds
}

func TestLexKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Kind
	}{
		{
			name: "let statement",
			src:  "let a = 1",
			want: []Kind{KindLet, KindIdent, KindAssign, KindNumber},
		},
		{
			name: "keywords",
			src:  "fn component state pub return if else while const",
			want: []Kind{KindFn, KindComponent, KindState, KindPub, KindReturn, KindIf, KindElse, KindWhile, KindConst},
		},
		{
			name: "two character operators",
			src:  "== => && ||",
			want: []Kind{KindEq, KindArrow, KindAnd, KindOr},
		},
		{
			name: "equals then eq",
			src:  "a = b == c",
			want: []Kind{KindIdent, KindAssign, KindIdent, KindEq, KindIdent},
		},
		{
			name: "punctuation",
			src:  "( ) { } [ ] , . : < > + - * /",
			want: []Kind{
				KindLParen, KindRParen, KindLBrace, KindRBrace, KindLBracket,
				KindRBracket, KindComma, KindDot, KindColon, KindLess,
				KindGreater, KindPlus, KindMinus, KindStar, KindSlash,
			},
		},
		{
			name: "newlines are trivia",
			src:  "let a = 1\nlet b = 2",
			want: []Kind{KindLet, KindIdent, KindAssign, KindNumber, KindLet, KindIdent, KindAssign, KindNumber},
		},
		{
			name: "comments are trivia",
			src:  "let a = 1 # trailing comment\n# full line\nlet b = 2",
			want: []Kind{KindLet, KindIdent, KindAssign, KindNumber, KindLet, KindIdent, KindAssign, KindNumber},
		},
		{
			name: "call expression",
			src:  "add(1, 2)",
			want: []Kind{KindIdent, KindLParen, KindNumber, KindComma, KindNumber, KindRParen},
		},
		{
			name: "empty input",
			src:  "",
			want: []Kind{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexKinds(t, tt.src)
			if len(got) != len(tt.want) {
				t.Fatalf("Lex(%q) = %v, want %v", tt.src, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Lex(%q)[%d] = %v, want %v", tt.src, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLexNumbers(t *testing.T) {
	tests := []struct {
		src   string
		text  string
		value string
	}{
		{"42", "42", "42"},
		{"1.5", "1.5", "1.5"},
		{"1_000_000", "1_000_000", "1000000"},
		{"1_0.5", "1_0.5", "10.5"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tokens, err := Lex(source.NewFile("test.ws", tt.src))
			if err != nil {
				t.Fatalf("Lex(%q) failed: %v", tt.src, err)
			}
			if tokens[0].Kind != KindNumber {
				t.Fatalf("Lex(%q)[0].Kind = %v, want number", tt.src, tokens[0].Kind)
			}
			if tokens[0].Text != tt.text {
				t.Errorf("Text = %q, want %q", tokens[0].Text, tt.text)
			}
			if got := NumberValue(tokens[0]); got != tt.value {
				t.Errorf("NumberValue = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestLexNumberTrailingDot(t *testing.T) {
	// A dot not followed by a digit ends the number.
	kinds := lexKinds(t, "1.value")
	want := []Kind{KindNumber, KindDot, KindIdent}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range kinds {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestLexStrings(t *testing.T) {
	tokens, err := Lex(source.NewFile("test.ws", `let s = "hello world"`))
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	str := tokens[3]
	if str.Kind != KindString {
		t.Fatalf("Kind = %v, want string", str.Kind)
	}
	if got := StringValue(str); got != "hello world" {
		t.Errorf("StringValue = %q, want %q", got, "hello world")
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"unterminated string", `let s = "oops`, "unterminated string"},
		{"unterminated string at newline", "let s = \"oops\nlet a = 1", "unterminated string"},
		{"multiple decimal points", "1.2.3", "multiple decimal points"},
		{"stray ampersand", "a & b", "unexpected character"},
		{"stray pipe", "a | b", "unexpected character"},
		{"invalid character", "let a = 1 @", "unexpected character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lex(source.NewFile("test.ws", tt.src))
			if err == nil {
				t.Fatalf("Lex(%q) succeeded, want error", tt.src)
			}
			var derr *diag.Error
			if !errors.As(err, &derr) {
				t.Fatalf("Lex(%q) error is %T, want *diag.Error", tt.src, err)
			}
			if !strings.Contains(derr.Diagnostic.Message, tt.message) {
				t.Errorf("message = %q, want substring %q", derr.Diagnostic.Message, tt.message)
			}
		})
	}
}

func TestTokenSpans(t *testing.T) {
	src := "let abc = 1"
	tokens, err := Lex(source.NewFile("test.ws", src))
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	ident := tokens[1]
	if ident.Span.Start != 4 || ident.Span.End != 7 {
		t.Errorf("ident span = [%d, %d), want [4, 7)", ident.Span.Start, ident.Span.End)
	}
	if src[ident.Span.Start:ident.Span.End] != "abc" {
		t.Errorf("span text = %q, want %q", src[ident.Span.Start:ident.Span.End], "abc")
	}
}
