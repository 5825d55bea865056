// Package token defines language keywords and tokens used when scanning Lox
// source code.
package token

// Type describes the type of a token as a string.
type Type string

// Token represents one token scanned from the input source code. Tokens are
// immutable once produced.
type Token struct {
	Type    Type
	Literal string
	Line    int
}

// Token types
const (
	// Single-character tokens
	LPAREN    Type = "("
	RPAREN    Type = ")"
	LBRACE    Type = "{"
	RBRACE    Type = "}"
	COMMA     Type = ","
	DOT       Type = "."
	MINUS     Type = "-"
	PLUS      Type = "+"
	SEMICOLON Type = ";"
	SLASH     Type = "/"
	STAR      Type = "*"

	// One or two character tokens
	BANG          Type = "!"
	BANG_EQUAL    Type = "!="
	EQUAL         Type = "="
	EQUAL_EQUAL   Type = "=="
	GREATER       Type = ">"
	GREATER_EQUAL Type = ">="
	LESS          Type = "<"
	LESS_EQUAL    Type = "<="

	// Literals
	IDENT  Type = "IDENT"
	STRING Type = "STRING"
	NUMBER Type = "NUMBER"

	// Keywords
	AND    Type = "AND"
	CLASS  Type = "CLASS"
	ELSE   Type = "ELSE"
	FALSE  Type = "FALSE"
	FOR    Type = "FOR"
	FUN    Type = "FUN"
	IF     Type = "IF"
	NIL    Type = "NIL"
	OR     Type = "OR"
	PRINT  Type = "PRINT"
	RETURN Type = "RETURN"
	SUPER  Type = "SUPER"
	THIS   Type = "THIS"
	TRUE   Type = "TRUE"
	VAR    Type = "VAR"
	WHILE  Type = "WHILE"

	// Scanning problems are reported as ERROR tokens whose literal holds
	// the message. EOF terminates every token stream.
	ERROR Type = "ERROR"
	EOF   Type = "EOF"
)

var keywords = map[string]Type{
	"and":    AND,
	"class":  CLASS,
	"else":   ELSE,
	"false":  FALSE,
	"for":    FOR,
	"fun":    FUN,
	"if":     IF,
	"nil":    NIL,
	"or":     OR,
	"print":  PRINT,
	"return": RETURN,
	"super":  SUPER,
	"this":   THIS,
	"true":   TRUE,
	"var":    VAR,
	"while":  WHILE,
}

// LookupIdentifier checks our keywords map for the scanned identifier.
// If the identifier is a keyword, the keyword type is returned.
func LookupIdentifier(identifier string) Type {
	if t, ok := keywords[identifier]; ok {
		return t
	}
	return IDENT
}
