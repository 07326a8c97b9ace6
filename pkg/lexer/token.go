package lexer

import "github.com/aweary/compiler/pkg/source"

// Kind identifies a token class.
type Kind int

const (
	KindEOF Kind = iota

	// Keywords
	KindImport
	KindLet
	KindFn
	KindState
	KindComponent
	KindEnum
	KindStruct
	KindConst
	KindFor
	KindIf
	KindElse
	KindIn
	KindWhile
	KindAsync
	KindAwait
	KindTrue
	KindFalse
	KindInterface
	KindPub
	KindReturn

	// Literals and names
	KindIdent
	KindNumber
	KindString

	// Punctuation and operators
	KindAssign // =
	KindEq     // ==
	KindArrow  // =>
	KindAnd    // &&
	KindOr     // ||
	KindDot
	KindComma
	KindLParen
	KindRParen
	KindLBrace
	KindRBrace
	KindLBracket
	KindRBracket
	KindStar
	KindPlus
	KindMinus
	KindSlash
	KindColon
	KindLess
	KindGreater
)

var kindNames = map[Kind]string{
	KindEOF:       "end of file",
	KindImport:    "import",
	KindLet:       "let",
	KindFn:        "fn",
	KindState:     "state",
	KindComponent: "component",
	KindEnum:      "enum",
	KindStruct:    "struct",
	KindConst:     "const",
	KindFor:       "for",
	KindIf:        "if",
	KindElse:      "else",
	KindIn:        "in",
	KindWhile:     "while",
	KindAsync:     "async",
	KindAwait:     "await",
	KindTrue:      "true",
	KindFalse:     "false",
	KindInterface: "interface",
	KindPub:       "pub",
	KindReturn:    "return",
	KindIdent:     "identifier",
	KindNumber:    "number",
	KindString:    "string",
	KindAssign:    "=",
	KindEq:        "==",
	KindArrow:     "=>",
	KindAnd:       "&&",
	KindOr:        "||",
	KindDot:       ".",
	KindComma:     ",",
	KindLParen:    "(",
	KindRParen:    ")",
	KindLBrace:    "{",
	KindRBrace:    "}",
	KindLBracket:  "[",
	KindRBracket:  "]",
	KindStar:      "*",
	KindPlus:      "+",
	KindMinus:     "-",
	KindSlash:     "/",
	KindColon:     ":",
	KindLess:      "<",
	KindGreater:   ">",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

var keywords = map[string]Kind{
	"import":    KindImport,
	"let":       KindLet,
	"fn":        KindFn,
	"state":     KindState,
	"component": KindComponent,
	"enum":      KindEnum,
	"struct":    KindStruct,
	"const":     KindConst,
	"for":       KindFor,
	"if":        KindIf,
	"else":      KindElse,
	"in":        KindIn,
	"while":     KindWhile,
	"async":     KindAsync,
	"await":     KindAwait,
	"true":      KindTrue,
	"false":     KindFalse,
	"interface": KindInterface,
	"pub":       KindPub,
	"return":    KindReturn,
}

// Token is one lexed token with its raw text and source span.
type Token struct {
	Kind Kind
	Text string
	Span source.Span
}

// Precedence orders infix operators for precedence climbing.
// Higher values bind tighter.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssign
	PrecConditional // && ||
	PrecCompare     // == < >
	PrecSum         // + -
	PrecProduct     // * /
	PrecCall        // calls and member access
)

// Precedence returns the infix binding power of the token, or PrecNone
// when the token cannot continue an expression.
func (t Token) Precedence() Precedence {
	switch t.Kind {
	case KindAssign:
		return PrecAssign
	case KindAnd, KindOr:
		return PrecConditional
	case KindEq, KindLess, KindGreater:
		return PrecCompare
	case KindPlus, KindMinus:
		return PrecSum
	case KindStar, KindSlash:
		return PrecProduct
	case KindLParen:
		return PrecCall
	default:
		return PrecNone
	}
}
