package parser

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrEmptyObject is returned for text holding no attributes, e.g. a block made
// only of comments.
var ErrEmptyObject = eris.New("object contains no attributes")

// Object is an RPSL object: an ordered list of attributes. Objects produced by
// the parser remember the text they were parsed from.
type Object struct {
	Attributes []Attribute
	source     string
	// start and end offsets of the attributes within the lexed text
	start  int
	end    int
	parsed bool
}

func NewObject(attributes ...Attribute) *Object {
	return &Object{Attributes: attributes}
}

func (o *Object) Len() int { return len(o.Attributes) }

// Class is the name of the first attribute, which determines the object class.
func (o *Object) Class() string {
	if len(o.Attributes) == 0 {
		return ""
	}

	return o.Attributes[0].Name
}

// Get returns the non-empty values of all attributes with the given name.
// Attribute names are compared case-insensitively.
func (o *Object) Get(name string) []string {
	result := make([]string, 0)
	for _, attr := range o.Attributes {
		if strings.EqualFold(attr.Name, name) {
			result = append(result, attr.WithContent()...)
		}
	}

	return result
}

// Source returns the text the object was parsed from.
func (o *Object) Source() (string, bool) {
	return o.source, o.parsed
}

// Equal compares the attributes of both objects. Objects that are equal may
// still render differently since parsed objects keep their source formatting.
func (o *Object) Equal(other *Object) bool {
	if other == nil || len(o.Attributes) != len(other.Attributes) {
		return false
	}

	for idx, attr := range o.Attributes {
		if !attr.Equal(other.Attributes[idx]) {
			return false
		}
	}

	return true
}

func (o *Object) String() string {
	if o.parsed {
		return o.source
	}

	var sb strings.Builder
	for _, attr := range o.Attributes {
		sb.WriteString(attr.String())
	}
	sb.WriteString("\n")

	return sb.String()
}

func (o *Object) MarshalJSON() ([]byte, error) {
	attributes := o.Attributes
	if attributes == nil {
		attributes = []Attribute{}
	}

	return json.Marshal(struct {
		Attributes []Attribute `json:"attributes"`
	}{attributes})
}

// ParseObject parses text holding exactly one RPSL object. Blank lines, comments
// and server messages around the object are ignored.
func ParseObject(ctx context.Context, text string) (*Object, error) {
	lex := NewLexer(ctx, strings.NewReader(text))
	obj, err := ReadObject(lex)
	if err != nil {
		return nil, err
	}

	for {
		token, err := lex.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, err
		}

		if token.Type != EndOfObject {
			return nil, token.Errorf("Unexpected %v after the end of the object", token.Type)
		}
	}

	obj.source = text[obj.start:obj.end]
	obj.parsed = true
	return obj, nil
}

// ReadObject reads the next object from the lexer. Leading blank lines are
// skipped and the object ends at the next blank line or the end of the text.
// Invalid values are reported as warnings on the lexer.
func ReadObject(lex *Lexer) (*Object, error) {
	result := &Object{}

	for {
		token, err := lex.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, err
		}

		if token.Type == EndOfObject {
			if len(result.Attributes) == 0 {
				continue
			}
			break
		}

		if token.Type != AttributeName {
			return nil, token.Errorf("Unexpected %v. Expected an attribute", token.Type)
		}

		attr, end, err := readAttribute(lex, token)
		if err != nil {
			return nil, err
		}

		if len(result.Attributes) == 0 {
			result.start = token.Offset
		}
		result.end = end.End
		result.Attributes = append(result.Attributes, attr)
	}

	if len(result.Attributes) == 0 {
		return nil, eris.Wrap(ErrEmptyObject, "nothing to parse")
	}

	return result, nil
}

func readAttribute(lex *Lexer, name Token) (Attribute, Token, error) {
	if err := ValidateName(name.Content); err != nil {
		return Attribute{}, name, name.Errorf("Invalid attribute name %q: %s", name.Content, err.Error())
	}

	token, err := lex.Next()
	if err != nil {
		return Attribute{}, name, err
	}

	if token.Type != AttributeValue {
		return Attribute{}, token, token.Errorf("Unexpected %v. Expected the value of %s", token.Type, name.Content)
	}

	attr := Attribute{Name: name.Content, Values: []string{token.Content}}
	checkValue(lex, name.Content, token)

	last := token
	for {
		next, err := lex.Peek()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return Attribute{}, last, err
		}

		if next.Type != Continuation {
			break
		}

		if _, err = lex.Next(); err != nil {
			return Attribute{}, last, err
		}

		checkValue(lex, name.Content, next)
		attr.Values = append(attr.Values, next.Content)
		last = next
	}

	lex.addScopeInfo(name, last, ScopeInfo{
		HoverText: strings.TrimSuffix(attr.String(), "\n"),
	})

	return attr, last, nil
}

func checkValue(lex *Lexer, name string, token Token) {
	if err := ValidateValue(token.Content); err != nil {
		lex.ReportWarning(token.Errorf("Invalid value for %s: %s", name, err.Error()))
	}
}
