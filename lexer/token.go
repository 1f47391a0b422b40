package lexer

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a token.
type Kind uint8

const (
	EOF Kind = iota
	BeginObject
	EndObject
	BeginArray
	EndArray
	Colon
	Comma
	String
	Number
	Literal
)

var kindNames = [...]string{
	EOF:         "EOF",
	BeginObject: "BeginObject",
	EndObject:   "EndObject",
	BeginArray:  "BeginArray",
	EndArray:    "EndArray",
	Colon:       "Colon",
	Comma:       "Comma",
	String:      "String",
	Number:      "Number",
	Literal:     "Literal",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Token is a single lexical element. Text holds the decoded contents of a String, the raw
// literal of a Number, or the word of a Literal.
type Token struct {
	Kind   Kind
	Offset int64
	Text   string
}

// Number returns the token text as a Number. It is only meaningful for Number tokens.
func (t Token) Number() NumberText {
	return NumberText(t.Text)
}

// IsLiteral reports whether t is the given literal word.
func (t Token) IsLiteral(word string) bool {
	return t.Kind == Literal && t.Text == word
}

// Describe names the token for error messages.
func (t Token) Describe() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case BeginObject:
		return "'{'"
	case EndObject:
		return "'}'"
	case BeginArray:
		return "'['"
	case EndArray:
		return "']'"
	case Colon:
		return "':'"
	case Comma:
		return "','"
	case String:
		return "string"
	case Number:
		return "number"
	case Literal:
		return t.Text
	}
	return t.Kind.String()
}

// NumberText is the raw text of a JSON number, already validated against the JSON grammar.
// Conversions pick the representation; range errors come back as *strconv.NumError.
type NumberText string

// IsInteger reports whether the literal has neither a fraction nor an exponent.
func (n NumberText) IsInteger() bool {
	return !strings.ContainsAny(string(n), ".eE")
}

// Int64 parses an integer literal.
func (n NumberText) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

// Uint64 parses a non-negative integer literal.
func (n NumberText) Uint64() (uint64, error) {
	return strconv.ParseUint(string(n), 10, 64)
}

// Float64 parses any number literal.
func (n NumberText) Float64() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}
