package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

type TokenType uint16

const (
	AttributeName TokenType = iota + 1
	AttributeValue
	Continuation
	Comment
	ServerMessage
	EndOfObject
)

func (t TokenType) String() string {
	switch t {
	case AttributeName:
		return "AttributeName"
	case AttributeValue:
		return "AttributeValue"
	case Continuation:
		return "Continuation"
	case Comment:
		return "Comment"
	case ServerMessage:
		return "ServerMessage"
	case EndOfObject:
		return "EndOfObject"
	default:
		return fmt.Sprintf("TokenType(%d)", uint16(t))
	}
}

type Token struct {
	Content string
	// Location holds the 1-based line and the 0-based column the token starts at.
	Location [2]int
	// Offset and End are byte offsets into the lexed text. End points past the
	// line terminator of the token's line.
	Offset int
	End    int
	Type   TokenType
}

func (t Token) Range() [4]int {
	start := t.Location
	lines := strings.Split(t.Content, "\n")
	chars := start[1] + len(t.Content)

	if len(lines) > 1 {
		chars = len(lines[len(lines)-1])
	}
	return [4]int{start[0], start[1], start[0] + len(lines) - 1, chars}
}

func (t Token) Errorf(msg string, args ...interface{}) error {
	codeRange := t.Range()
	return eris.Wrap(NewParserError(fmt.Sprintf(msg, args...), codeRange), "")
}

type Scanner interface {
	io.RuneScanner
	io.Seeker
}

type ScopeInfo struct {
	HoverText string
	Start     [2]int
	End       [2]int
}

// Shift moves the scope by the given number of lines.
func (s ScopeInfo) Shift(lines int) ScopeInfo {
	s.Start[0] += lines
	s.End[0] += lines
	return s
}

// Lexer turns the lines of RPSL text into tokens. Every line yields exactly
// one token, except for attribute lines which yield a name and a value.
type Lexer struct {
	ctx        context.Context
	buffer     Scanner
	next       *Token
	errors     []error
	warnings   []error
	scopeInfos []ScopeInfo
	messages   []string
	posStack   []savedPos
	line       int
	col        int
	prevCol    int
	offset     int
	lastSize   int
	lastChar   rune
	afterName  bool
}

type savedPos struct {
	stream    int64
	line      int
	col       int
	offset    int
	afterName bool
}

func NewLexer(ctx context.Context, buffer Scanner) *Lexer {
	return &Lexer{ctx: ctx, buffer: buffer}
}

func (l *Lexer) addScopeInfo(start, end Token, info ScopeInfo) {
	startRange := start.Range()
	endRange := end.Range()
	info.Start = [2]int{startRange[0], startRange[1]}
	info.End = [2]int{endRange[2], endRange[3]}

	l.scopeInfos = append(l.scopeInfos, info)
}

func (l *Lexer) Errors() []error {
	return l.errors
}

func (l *Lexer) Warnings() []error {
	return l.warnings
}

func (l *Lexer) ScopeInfos() []ScopeInfo {
	return l.scopeInfos
}

// Messages returns the server messages ('%' lines) skipped so far.
func (l *Lexer) Messages() []string {
	return l.messages
}

func (l *Lexer) Report(e error) {
	l.errors = append(l.errors, e)
}

func (l *Lexer) ReportWarning(e error) {
	l.warnings = append(l.warnings, e)
}

func (l *Lexer) PushPosition() {
	streamPos, err := l.buffer.Seek(0, io.SeekCurrent)
	if err != nil {
		l.Report(err)
		return
	}

	l.posStack = append(l.posStack, savedPos{
		stream:    streamPos,
		line:      l.line,
		col:       l.col,
		offset:    l.offset,
		afterName: l.afterName,
	})
}

// PopPosition rewinds the lexer to the most recently pushed position.
func (l *Lexer) PopPosition() {
	stackSize := len(l.posStack)
	if stackSize == 0 {
		return
	}
	frame := l.posStack[stackSize-1]
	l.posStack = l.posStack[:stackSize-1]

	_, err := l.buffer.Seek(frame.stream, io.SeekStart)
	if err != nil {
		l.Report(err)
	}
	l.line = frame.line
	l.col = frame.col
	l.offset = frame.offset
	l.afterName = frame.afterName
}

func (l *Lexer) DropPosition() {
	stackSize := len(l.posStack)
	if stackSize == 0 {
		return
	}
	l.posStack = l.posStack[:stackSize-1]
}

// Next returns the next token. Comments and server messages are skipped.
// io.EOF is returned once the text is exhausted.
func (l *Lexer) Next() (Token, error) {
	if err := l.fill(); err != nil {
		return Token{}, err
	}

	result := l.next
	l.next = nil
	return *result, nil
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	if err := l.fill(); err != nil {
		return Token{}, err
	}

	return *l.next, nil
}

func (l *Lexer) fill() error {
	for l.next == nil {
		if err := l.readToken(); err != nil {
			return err
		}

		switch l.next.Type {
		case Comment:
			l.next = nil
		case ServerMessage:
			l.messages = append(l.messages, l.next.Content)
			l.next = nil
		}
	}

	return nil
}

// readToken reads a single token into l.next. On failure the lexer is
// rewound to the start of the token.
func (l *Lexer) readToken() error {
	if l.ctx.Err() != nil {
		return l.ctx.Err()
	}

	l.PushPosition()
	err := l.scanToken()
	if err == nil {
		l.DropPosition()
	} else {
		l.PopPosition()
	}

	return err
}

func (l *Lexer) scanToken() error {
	if l.afterName {
		l.afterName = false
		return l.readValue()
	}

	token := l.makeToken(0)
	char, err := l.readRune()
	if err != nil {
		return err
	}

	switch char {
	case '%':
		token.Type = ServerMessage
		err = l.readMessage(token)
	case '#':
		token.Type = Comment
		err = l.readMessage(token)
	case ' ', '\t', '+', '\r', '\n':
		err = l.readContinuation(token, char)
	default:
		token.Type = AttributeName
		err = l.readName(token, char)
	}

	if err != nil {
		return err
	}

	token.End = l.offset
	l.next = token
	return nil
}

func (l *Lexer) makeToken(tt TokenType) *Token {
	return &Token{
		Type:     tt,
		Content:  "",
		Location: [2]int{l.line + 1, l.col},
		Offset:   l.offset,
	}
}

func (l *Lexer) readRune() (rune, error) {
	char, size, err := l.buffer.ReadRune()
	if err != nil {
		return 0, err
	}

	l.offset += size
	l.lastSize = size
	l.lastChar = char
	if char == '\n' {
		l.line++
		l.prevCol = l.col
		l.col = 0
	} else {
		l.col++
	}

	return char, nil
}

func (l *Lexer) unreadRune() error {
	if err := l.buffer.UnreadRune(); err != nil {
		return err
	}

	l.offset -= l.lastSize
	if l.lastChar == '\n' {
		l.line--
		l.col = l.prevCol
	} else {
		l.col--
	}

	return nil
}

// readLine consumes the rest of the current line including its terminator and
// returns it without the terminator.
func (l *Lexer) readLine() (string, error) {
	result := make([]rune, 0, 100)
	for {
		char, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return "", err
		}

		if char == '\n' {
			break
		}
		result = append(result, char)
	}

	return strings.TrimSuffix(string(result), "\r"), nil
}

func (l *Lexer) readMessage(token *Token) error {
	content, err := l.readLine()
	if err != nil {
		return err
	}

	token.Content = strings.TrimLeft(content, " \t")
	return nil
}

// readContinuation handles lines starting with whitespace or '+'. Only an
// empty line ends the object; a line of spaces or tabs is an empty
// continuation value.
func (l *Lexer) readContinuation(token *Token, first rune) error {
	if first == '\n' {
		token.Type = EndOfObject
		return nil
	}

	content, err := l.readLine()
	if err != nil {
		return err
	}

	if first == '\r' && content == "" {
		token.Type = EndOfObject
		return nil
	}

	token.Type = Continuation
	token.Content = strings.TrimLeft(content, " \t")
	return nil
}

func (l *Lexer) readName(token *Token, first rune) error {
	name := []rune{first}
	for {
		char, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return err
		}

		if char == ':' {
			token.Content = string(name)
			l.afterName = true
			return nil
		}

		if char == '\n' {
			break
		}
		name = append(name, char)
	}

	token.Content = strings.TrimSuffix(string(name), "\r")
	return token.Errorf("Expected ':' after attribute name")
}

func (l *Lexer) readValue() error {
	for {
		char, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return err
		}

		if char != ' ' && char != '\t' {
			if err = l.unreadRune(); err != nil {
				return err
			}
			break
		}
	}

	token := l.makeToken(AttributeValue)
	content, err := l.readLine()
	if err != nil {
		return err
	}

	token.Content = content
	token.End = l.offset
	l.next = token
	return nil
}
