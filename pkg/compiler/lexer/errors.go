package lexer

import (
	"errors"
	"fmt"
)

var (
	// ErrEndOfStream is returned by Stream.NextChar once the source is exhausted.
	ErrEndOfStream = errors.New("lexer: end of stream")
	// ErrEndOfTokens signals normal end of input between tokens. It is not a failure.
	ErrEndOfTokens = errors.New("lexer: end of tokens")
)

// LexicalError reports malformed source: an unterminated string or comment,
// input exhausted mid-token, an unrecognized character or a malformed numeral.
type LexicalError struct {
	Line int
	Msg  string
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("lexical error at line %d: %s", e.Line, e.Msg)
}

// TokenMismatchError reports that the token the parser required was absent.
type TokenMismatchError struct {
	Line int
	Want string
	Got  string
}

func (e *TokenMismatchError) Error() string {
	return fmt.Sprintf("line %d: expected %s, got %s", e.Line, e.Want, e.Got)
}
