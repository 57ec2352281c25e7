package lexer

import "unicode/utf8"

// Stream is a UTF-8 character cursor over source text with one step of
// lookback. Invalid bytes decode as utf8.RuneError, one byte at a time.
type Stream struct {
	source []byte
	pos    int
	last   int // width of the last character read, 0 after Unget
}

// NewStream creates a stream positioned at the start of source.
func NewStream(source []byte) *Stream {
	return &Stream{source: source}
}

// NextChar returns the next character and advances the cursor past it.
func (s *Stream) NextChar() (rune, error) {
	if s.pos >= len(s.source) {
		return 0, ErrEndOfStream
	}
	r, width := utf8.DecodeRune(s.source[s.pos:])
	s.pos += width
	s.last = width
	return r, nil
}

// Unget undoes exactly one NextChar. It panics at the start of the stream
// or when the previous advance was already undone.
func (s *Stream) Unget() {
	if s.pos <= 0 || s.last == 0 {
		panic("lexer: unget without a preceding advance")
	}
	s.pos -= s.last
	s.last = 0
}

// Pos returns the cursor offset in bytes.
func (s *Stream) Pos() int {
	return s.pos
}
