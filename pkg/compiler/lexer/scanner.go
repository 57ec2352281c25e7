// Package lexer turns zoro source text into a lazy stream of classified
// tokens, each tagged with the line it started on.
//
// Operators are scanned by maximal munch over a closed operator table.
// Words are classified in a fixed priority order: keyword, word operator,
// boolean literal, numeric literal, identifier, and finally UnknownWord.
package lexer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agenthands/zoro/pkg/core/value"
)

// Lexer scans tokens from a Stream and keeps one token of lookahead.
type Lexer struct {
	stream *Stream
	line   int

	saved   bool
	save    Token
	saveErr error
}

// NewLexer creates a lexer over source, starting at line 1.
func NewLexer(source []byte) *Lexer {
	return &Lexer{
		stream: NewStream(source),
		line:   1,
	}
}

// Reset re-initializes the lexer with new source for reuse.
func (l *Lexer) Reset(source []byte) {
	l.stream = NewStream(source)
	l.line = 1
	l.saved = false
	l.save = Token{}
	l.saveErr = nil
}

// Line returns the current line counter.
func (l *Lexer) Line() int {
	return l.line
}

// NextToken scans the next token. It returns ErrEndOfTokens when the input
// is exhausted between tokens and a *LexicalError for malformed input.
// NextToken ignores any token cached by Peek.
func (l *Lexer) NextToken() (Token, error) {
	for {
		ch, err := l.stream.NextChar()
		if err != nil {
			return Token{Kind: KindEOF, Line: l.line}, ErrEndOfTokens
		}

		switch {
		case isSymbol(ch):
			return Token{Kind: KindSymbol, Text: string(ch), Line: l.line}, nil

		case isOperatorStart(ch):
			return l.scanOperator(ch), nil

		case isWordStart(ch):
			return l.scanWord(ch), nil

		case isDigit(ch):
			return l.scanNumber(ch)

		case ch == '"':
			return l.scanString()

		case ch == '\n':
			l.line++

		case isWhitespace(ch):
			// skipped

		case ch == '#':
			if err := l.skipComment(); err != nil {
				return Token{}, err
			}

		case ch == utf8.RuneError:
			return Token{}, l.errorf("invalid UTF-8 byte at offset %d", l.stream.Pos()-1)

		default:
			return Token{}, l.errorf("unrecognized character %q", ch)
		}
	}
}

// Peek returns the next token without consuming it. The result is cached,
// so repeated calls never rescan and never recount lines.
func (l *Lexer) Peek() (Token, error) {
	if !l.saved {
		l.save, l.saveErr = l.NextToken()
		l.saved = true
	}
	return l.save, l.saveErr
}

// Advance consumes the token cached by Peek. It panics if nothing is cached.
func (l *Lexer) Advance() {
	if !l.saved {
		panic("lexer: Advance without Peek")
	}
	l.saved = false
	l.save = Token{}
	l.saveErr = nil
}

// Next returns and consumes the next token, honouring the Peek cache.
func (l *Lexer) Next() (Token, error) {
	tok, err := l.Peek()
	if err == nil || errors.Is(err, ErrEndOfTokens) {
		l.Advance()
	}
	return tok, err
}

// Match consumes the next token if it has the given kind and, when text is
// non-empty, the given text. Otherwise it returns a *TokenMismatchError and
// leaves the token in place.
func (l *Lexer) Match(kind Kind, text string) (Token, error) {
	tok, err := l.Peek()
	if err != nil && !errors.Is(err, ErrEndOfTokens) {
		return tok, err
	}
	if tok.Kind != kind || (text != "" && tok.Text != text) {
		want := kind.String()
		if text != "" {
			want = strconv.Quote(text)
		}
		return tok, &TokenMismatchError{Line: tok.Line, Want: want, Got: describe(tok)}
	}
	l.Advance()
	return tok, nil
}

// Tokenize scans all of source. ErrEndOfTokens ends the loop normally.
func Tokenize(source []byte) ([]Token, error) {
	l := NewLexer(source)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if errors.Is(err, ErrEndOfTokens) {
			return tokens, nil
		}
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

func describe(tok Token) string {
	if tok.Kind == KindEOF {
		return "end of input"
	}
	return tok.String()
}

func (l *Lexer) errorf(format string, args ...any) error {
	return &LexicalError{Line: l.line, Msg: fmt.Sprintf(format, args...)}
}

func isOperatorStart(ch rune) bool {
	_, ok := symbolicOperators[string(ch)]
	return ok
}

// scanOperator extends the operator while the longer string is still an
// operator, then gives back the first character that did not fit.
func (l *Lexer) scanOperator(first rune) Token {
	line := l.line
	op := string(first)
	for {
		ch, err := l.stream.NextChar()
		if err != nil {
			break
		}
		if _, ok := symbolicOperators[op+string(ch)]; !ok {
			l.stream.Unget()
			break
		}
		op += string(ch)
	}
	return Token{Kind: KindOperator, Text: op, Line: line}
}

func (l *Lexer) scanWord(first rune) Token {
	line := l.line
	var sb strings.Builder
	sb.WriteRune(first)
	for {
		ch, err := l.stream.NextChar()
		if err != nil {
			break
		}
		if !isWordPart(ch) {
			l.stream.Unget()
			break
		}
		sb.WriteRune(ch)
	}
	tok := classifyWord(sb.String())
	tok.Line = line
	return tok
}

func classifyWord(word string) Token {
	if IsKeyword(word) {
		return Token{Kind: KindKeyword, Text: word}
	}
	if _, ok := wordOperators[word]; ok {
		return Token{Kind: KindOperator, Text: word}
	}
	switch word {
	case "True":
		return Token{Kind: KindBool, Text: word, Value: value.Bool(true)}
	case "False":
		return Token{Kind: KindBool, Text: word, Value: value.Bool(false)}
	}
	// Only the spellings of infinity and NaN can get here.
	if f, err := strconv.ParseFloat(word, 64); err == nil {
		return Token{Kind: KindFloat, Text: word, Value: value.Float(f)}
	}
	if isIdentifier(word) {
		return Token{Kind: KindIdentifier, Text: word}
	}
	return Token{Kind: KindUnknownWord, Text: word}
}

func isIdentifier(word string) bool {
	if word == "" || !isIdentStart(word[0]) {
		return false
	}
	for i := 1; i < len(word); i++ {
		if !isIdentPart(word[i]) {
			return false
		}
	}
	return true
}

// scanNumber accumulates the integer part digit by digit. A decimal point
// switches to a Float whose text is decoded in one step to keep rounding
// exact. A second decimal point is an error.
func (l *Lexer) scanNumber(first rune) (Token, error) {
	line := l.line
	var sb strings.Builder
	sb.WriteRune(first)

	n := int64(first - '0')
	overflow := false
	decimal := false

	for {
		ch, err := l.stream.NextChar()
		if err != nil {
			break
		}
		if isDigit(ch) {
			sb.WriteRune(ch)
			if !decimal {
				d := int64(ch - '0')
				if n > (math.MaxInt64-d)/10 {
					overflow = true
				}
				n = n*10 + d
			}
			continue
		}
		if ch == '.' {
			if decimal {
				return Token{}, l.errorf("multiple decimal points in numeral %q", sb.String()+".")
			}
			decimal = true
			sb.WriteRune(ch)
			continue
		}
		l.stream.Unget()
		break
	}

	text := sb.String()
	if decimal {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, l.errorf("malformed numeral %q", text)
		}
		return Token{Kind: KindFloat, Text: text, Value: value.Float(f), Line: line}, nil
	}
	if overflow {
		return Token{}, l.errorf("integer literal %s out of range", text)
	}
	return Token{Kind: KindInt, Text: text, Value: value.Int(n), Line: line}, nil
}

// scanString reads raw characters up to the closing quote. There are no
// escape sequences.
func (l *Lexer) scanString() (Token, error) {
	line := l.line
	var sb strings.Builder
	for {
		ch, err := l.stream.NextChar()
		if err != nil {
			return Token{}, &LexicalError{Line: line, Msg: "unterminated string literal"}
		}
		if ch == '"' {
			return Token{Kind: KindString, Text: sb.String(), Line: line}, nil
		}
		if ch == '\n' {
			l.line++
		}
		sb.WriteRune(ch)
	}
}

// skipComment consumes everything up to the closing '#'.
func (l *Lexer) skipComment() error {
	line := l.line
	for {
		ch, err := l.stream.NextChar()
		if err != nil {
			return &LexicalError{Line: line, Msg: "unterminated comment"}
		}
		switch ch {
		case '#':
			return nil
		case '\n':
			l.line++
		}
	}
}
