package lexer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/agenthands/zoro/pkg/core/value"
)

// Kind represents the type of token identified by the scanner.
type Kind uint8

const (
	KindEOF Kind = iota
	KindKeyword
	KindIdentifier
	KindOperator
	KindSymbol
	KindInt
	KindFloat
	KindFrac
	KindString
	KindBool
	KindUnknownWord
)

var kindNames = [...]string{
	KindEOF:         "EOF",
	KindKeyword:     "Keyword",
	KindIdentifier:  "Identifier",
	KindOperator:    "Operator",
	KindSymbol:      "Symbol",
	KindInt:         "Int",
	KindFloat:       "Float",
	KindFrac:        "Frac",
	KindString:      "String",
	KindBool:        "Bool",
	KindUnknownWord: "UnknownWord",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsLiteral reports whether tokens of this kind carry a literal value.
func (k Kind) IsLiteral() bool {
	switch k {
	case KindInt, KindFloat, KindFrac, KindString, KindBool:
		return true
	}
	return false
}

// Token is a lexical unit with the line it started on.
// Text holds the word, operator, symbol or raw string contents; Value
// holds the decoded number or boolean for Int, Float, Frac and Bool.
type Token struct {
	Kind  Kind
	Text  string
	Value value.Value
	Line  int
}

func (t Token) String() string {
	switch t.Kind {
	case KindEOF:
		return "EOF"
	case KindInt, KindFloat, KindFrac, KindBool:
		return fmt.Sprintf("%s(%s)", t.Kind, t.Value.Format(nil))
	case KindString:
		return fmt.Sprintf("String(%q)", t.Text)
	}
	return fmt.Sprintf("%s(%s)", t.Kind, t.Text)
}

// Is reports whether t has the given kind and text.
func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// The alphabets below are closed. Extending the language means extending
// these tables, not the scanning algorithm.
var (
	keywords = wordSet(`
		Int Float Frac Bool String
		var
		if then elif else endif
		print
		fun of is returns endfun
		while do endwhile break
		for in endfor
		concat
		push pop len insert count index at update range`)

	symbolicOperators = wordSet(`+ - * / < > <= >= = == ! != ** % // ~ & | ^ -> <- << >>`)

	wordOperators = wordSet(`and or not xor xnor nand nor concat from to`)
)

func wordSet(list string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(list) {
		set[w] = struct{}{}
	}
	return set
}

// IsKeyword reports whether word is a reserved keyword.
func IsKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}

// IsOperator reports whether s is a symbolic or word operator.
func IsOperator(s string) bool {
	if _, ok := symbolicOperators[s]; ok {
		return true
	}
	_, ok := wordOperators[s]
	return ok
}

func isSymbol(ch rune) bool {
	switch ch {
	case ',', ';', '.', '(', ')', '[', ']':
		return true
	}
	return false
}

func isWhitespace(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\r'
}

// isDigit is ASCII only; numerals are always written in 0-9.
func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// Words may contain any letter or digit. Only ASCII words can be
// identifiers; the rest classify as UnknownWord.
func isWordStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isWordPart(ch rune) bool {
	return isWordStart(ch) || unicode.IsDigit(ch)
}

func isIdentStart(ch byte) bool {
	return isAlpha(rune(ch)) || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(rune(ch))
}
