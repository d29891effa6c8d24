package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	ErrEmptyName             = eris.New("cannot be empty")
	ErrNonASCIIName          = eris.New("cannot contain characters that are not part of the ASCII set")
	ErrNameFirstChar         = eris.New("cannot start with a non-letter ASCII character")
	ErrNameLastChar          = eris.New("cannot end with a non-letter or non-digit ASCII character")
	ErrNameChar              = eris.New("may only contain letters, digits, '-' and '_'")
	ErrNonExtendedASCIIValue = eris.New("cannot contain characters that are not part of the extended ASCII set")
	ErrControlCharValue      = eris.New("cannot contain ASCII control characters")
)

// Attribute is a single RPSL attribute. Values holds the value of the
// attribute line followed by the values of its continuation lines; an empty
// string stands for a line without a value.
type Attribute struct {
	Name   string
	Values []string
}

// NewAttribute builds an attribute after validating its name and values.
func NewAttribute(name string, values ...string) (Attribute, error) {
	if err := ValidateName(name); err != nil {
		return Attribute{}, eris.Wrapf(err, "invalid attribute name %q", name)
	}

	if len(values) == 0 {
		values = []string{""}
	}

	for _, value := range values {
		if err := ValidateValue(value); err != nil {
			return Attribute{}, eris.Wrapf(err, "invalid value for attribute %s", name)
		}
	}

	return Attribute{Name: name, Values: values}, nil
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}

	for idx := 0; idx < len(name); idx++ {
		c := name[idx]
		if c > 0x7f {
			return ErrNonASCIIName
		}

		if !isASCIILetter(c) && !isASCIIDigit(c) && c != '-' && c != '_' {
			return ErrNameChar
		}
	}

	if !isASCIILetter(name[0]) {
		return ErrNameFirstChar
	}

	last := name[len(name)-1]
	if !isASCIILetter(last) && !isASCIIDigit(last) {
		return ErrNameLastChar
	}

	return nil
}

func ValidateValue(value string) error {
	for _, r := range value {
		if r > 0xff {
			return ErrNonExtendedASCIIValue
		}

		if r < 0x20 || r == 0x7f {
			return ErrControlCharValue
		}
	}

	return nil
}

// Value returns the value of the attribute line itself.
func (a Attribute) Value() string {
	if len(a.Values) == 0 {
		return ""
	}

	return a.Values[0]
}

// WithContent returns the values that are not empty.
func (a Attribute) WithContent() []string {
	result := make([]string, 0, len(a.Values))
	for _, value := range a.Values {
		if value != "" {
			result = append(result, value)
		}
	}

	return result
}

func (a Attribute) Equal(other Attribute) bool {
	if a.Name != other.Name || len(a.Values) != len(other.Values) {
		return false
	}

	for idx, value := range a.Values {
		if other.Values[idx] != value {
			return false
		}
	}

	return true
}

// String renders the attribute as RPSL with values starting at column 16.
func (a Attribute) String() string {
	var sb strings.Builder
	values := a.Values
	if len(values) == 0 {
		values = []string{""}
	}

	for idx, value := range values {
		label := ""
		if idx == 0 {
			label = a.Name + ":"
		}
		fmt.Fprintf(&sb, "%-16s%s\n", label, value)
	}

	return sb.String()
}

type jsonAttribute struct {
	Name   string    `json:"name"`
	Values []*string `json:"values"`
}

// MarshalJSON encodes empty values as null.
func (a Attribute) MarshalJSON() ([]byte, error) {
	values := make([]*string, len(a.Values))
	for idx := range a.Values {
		if a.Values[idx] != "" {
			values[idx] = &a.Values[idx]
		}
	}

	return json.Marshal(jsonAttribute{Name: a.Name, Values: values})
}
