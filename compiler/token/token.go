// Released under an MIT license. See LICENSE.

// Package token is shared by the fig lexer and parser.
package token

import (
	"strconv"

	"github.com/figlang/fig/compiler/loc"
)

// Class is a token's type.
type Class int

// T (token) is a lexical item returned by the scanner.
type T struct {
	class  Class
	source *loc.T
	value  string
}

type token = T

// Token classes.
const (
	Error Class = iota

	// Single-character punctuation.
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Dot
	Minus
	Plus
	Semicolon
	Slash
	Star

	// One or two character comparisons.
	Bang
	BangEqual
	Equal
	EqualEqual
	Greater
	GreaterEqual
	Less
	LessEqual

	// Literals.
	Identifier
	String
	Number

	// Keywords.
	And
	Else
	Export
	False
	Fn
	If
	Import
	Let
	Module
	Nil
	Or
	Return
	True
	While

	EOF
)

var names = [...]string{
	Error:        "Error",
	LParen:       "'('",
	RParen:       "')'",
	LBrace:       "'{'",
	RBrace:       "'}'",
	LBracket:     "'['",
	RBracket:     "']'",
	Comma:        "','",
	Dot:          "'.'",
	Minus:        "'-'",
	Plus:         "'+'",
	Semicolon:    "';'",
	Slash:        "'/'",
	Star:         "'*'",
	Bang:         "'!'",
	BangEqual:    "'!='",
	Equal:        "'='",
	EqualEqual:   "'=='",
	Greater:      "'>'",
	GreaterEqual: "'>='",
	Less:         "'<'",
	LessEqual:    "'<='",
	Identifier:   "identifier",
	String:       "string",
	Number:       "number",
	And:          "'and'",
	Else:         "'else'",
	Export:       "'export'",
	False:        "'false'",
	Fn:           "'fn'",
	If:           "'if'",
	Import:       "'import'",
	Let:          "'let'",
	Module:       "'module'",
	Nil:          "'nil'",
	Or:           "'or'",
	Return:       "'return'",
	True:         "'true'",
	While:        "'while'",
	EOF:          "end of input",
}

// New creates a new token.
func New(class Class, value string, source *loc.T) *token {
	return &token{
		class:  class,
		source: source,
		value:  value,
	}
}

// String returns a string representation of Class. Useful for debugging.
func (c Class) String() string {
	if int(c) < len(names) {
		return names[c]
	}

	return strconv.Itoa(int(c))
}

// Class returns the token's class.
func (t *token) Class() Class {
	return t.class
}

// Is returns true if the token t is any of the classes in cs.
func (t *token) Is(cs ...Class) bool {
	if t == nil {
		return false
	}

	for _, c := range cs {
		if t.class == c {
			return true
		}
	}

	return false
}

// Source returns the source location for this token.
func (t *token) Source() *loc.T {
	return t.source
}

// String returns the token's string representation. Useful for debugging.
func (t *token) String() string {
	return strconv.Quote(t.value) + "(" +
		t.class.String() + "," +
		t.source.String() + ")"
}

// Value returns the token's string value.
func (t *token) Value() string {
	return t.value
}
