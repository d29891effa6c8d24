// Package splitter partitions raw RPSL text into object strings.
//
// RPSL objects are separated by one or more blank lines. The splitter never
// copies or alters the source: every object it yields is a slice of the text
// it was created with, including the line terminator of the object's last line.
package splitter

import (
	"io"
	"iter"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidArgument is returned when a splitter cannot be built from the given input.
var ErrInvalidArgument = eris.New("invalid argument")

// Span locates the most recently yielded object inside the source text.
type Span struct {
	// Start and End are byte offsets, End is exclusive.
	Start int
	End   int
	// Line is the 1-based line the object starts on.
	Line int
}

// Option configures how a Splitter recognises separator lines.
type Option func(*Splitter)

// WithStrictBlank makes only empty lines (optionally holding a lone '\r')
// separate objects. Lines holding spaces or tabs then belong to the object.
func WithStrictBlank(strict bool) Option {
	return func(s *Splitter) {
		s.strictBlank = strict
	}
}

// WithCommentBreaks turns lines starting with any of the given characters into
// separators. Such lines are dropped instead of being part of an object.
func WithCommentBreaks(prefixes string) Option {
	return func(s *Splitter) {
		s.commentBreaks = prefixes
	}
}

// Splitter walks the objects of an RPSL text one at a time.
type Splitter struct {
	source        string
	commentBreaks string
	span          Span
	pos           int
	line          int
	strictBlank   bool
}

// New returns a splitter positioned before the first object of source.
func New(source string, opts ...Option) *Splitter {
	s := &Splitter{source: source, line: 1}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// FromReader loads the whole reader and returns a splitter over its content.
func FromReader(r io.Reader, opts ...Option) (*Splitter, error) {
	if r == nil {
		return nil, eris.Wrap(ErrInvalidArgument, "no RPSL source reader given")
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "failed to read RPSL source")
	}

	return New(string(content), opts...), nil
}

// Split eagerly collects every object of source.
func Split(source string, opts ...Option) []string {
	result := make([]string, 0)
	for object := range New(source, opts...).All() {
		result = append(result, object)
	}

	return result
}

// Source returns the text the splitter was created with.
func (s *Splitter) Source() string { return s.source }

// Span describes the object returned by the last successful call to Next.
func (s *Splitter) Span() Span { return s.span }

// Next returns the next object and true, or "" and false once the source is
// exhausted.
func (s *Splitter) Next() (string, bool) {
	for s.pos < len(s.source) {
		line := s.lineAt(s.pos)
		if !s.isSeparator(line) {
			break
		}
		s.advance(line)
	}

	if s.pos >= len(s.source) {
		return "", false
	}

	start, startLine := s.pos, s.line
	for s.pos < len(s.source) {
		line := s.lineAt(s.pos)
		if s.isSeparator(line) {
			break
		}
		s.advance(line)
	}

	s.span = Span{Start: start, End: s.pos, Line: startLine}
	return s.source[start:s.pos], true
}

// Reset rewinds the splitter so the next call to Next starts a fresh traversal.
func (s *Splitter) Reset() {
	s.pos = 0
	s.line = 1
	s.span = Span{}
}

// All returns a sequence over every object of the source. Each range over the
// sequence is an independent traversal and leaves s untouched.
func (s *Splitter) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		it := s.clone()
		for object, ok := it.Next(); ok; object, ok = it.Next() {
			if !yield(object) {
				return
			}
		}
	}
}

// Spans is like All but also yields the location of every object.
func (s *Splitter) Spans() iter.Seq2[Span, string] {
	return func(yield func(Span, string) bool) {
		it := s.clone()
		for object, ok := it.Next(); ok; object, ok = it.Next() {
			if !yield(it.span, object) {
				return
			}
		}
	}
}

func (s *Splitter) clone() *Splitter {
	return &Splitter{
		source:        s.source,
		commentBreaks: s.commentBreaks,
		strictBlank:   s.strictBlank,
		line:          1,
	}
}

func (s *Splitter) advance(line string) {
	s.pos += len(line)
	s.line++
}

// lineAt returns the line starting at pos including its '\n' terminator.
func (s *Splitter) lineAt(pos int) string {
	end := strings.IndexByte(s.source[pos:], '\n')
	if end == -1 {
		return s.source[pos:]
	}

	return s.source[pos : pos+end+1]
}

func (s *Splitter) isSeparator(line string) bool {
	content := strings.TrimSuffix(line, "\n")
	content = strings.TrimSuffix(content, "\r")

	if s.strictBlank {
		if content == "" {
			return true
		}
	} else if strings.TrimSpace(content) == "" {
		return true
	}

	return s.commentBreaks != "" && content != "" && strings.IndexByte(s.commentBreaks, content[0]) > -1
}
