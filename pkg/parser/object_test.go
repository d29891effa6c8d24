package parser

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAttribute(t *testing.T, name string, values ...string) Attribute {
	t.Helper()

	attr, err := NewAttribute(name, values...)
	require.NoError(t, err)
	return attr
}

func roleACME(t *testing.T) *Object {
	return NewObject(
		mustAttribute(t, "role", "ACME Company"),
		mustAttribute(t, "address", "Packet Street 6"),
		mustAttribute(t, "address", "128 Series of Tubes"),
		mustAttribute(t, "address", "Internet"),
		mustAttribute(t, "email", "rpsl-rs@github.com"),
		mustAttribute(t, "nic-hdl", "RPSL1-RIPE"),
		mustAttribute(t, "source", "RIPE"),
	)
}

func TestParseObject(t *testing.T) {
	text := "\n" +
		"role:        ACME Company\n" +
		"address:     Packet Street 6\n" +
		"address:     128 Series of Tubes\n" +
		"address:     Internet\n" +
		"email:       rpsl-rs@github.com\n" +
		"nic-hdl:     RPSL1-RIPE\n" +
		"source:      RIPE\n" +
		"\n"

	obj, err := ParseObject(context.Background(), text)
	require.NoError(t, err)
	assert.True(t, roleACME(t).Equal(obj))
	assert.Equal(t, 7, obj.Len())
	assert.Equal(t, "role", obj.Class())

	source, ok := obj.Source()
	require.True(t, ok)
	assert.Equal(t, strings.Trim(text, "\n")+"\n", source)
	assert.Equal(t, source, obj.String())
}

func TestParseObjectMultilineValues(t *testing.T) {
	text := "remarks:        Test\n" +
		"                continuation value prefixed by a space\n" +
		"\t              continuation value prefixed by a tab\n" +
		"+               continuation value prefixed by a plus\n" +
		"remarks:        Peering Policy\n"

	obj, err := ParseObject(context.Background(), text)
	require.NoError(t, err)
	require.Equal(t, 2, obj.Len())
	assert.Equal(t, []string{
		"Test",
		"continuation value prefixed by a space",
		"continuation value prefixed by a tab",
		"continuation value prefixed by a plus",
	}, obj.Attributes[0].Values)
	assert.Equal(t, "Peering Policy", obj.Attributes[1].Value())
}

func TestParseObjectWhitespaceContinuation(t *testing.T) {
	text := "remarks:        I have lots\n" +
		"                \n" +
		"\t\n" +
		"                to say.\n"

	obj, err := ParseObject(context.Background(), text)
	require.NoError(t, err)
	require.Equal(t, 1, obj.Len())
	assert.Equal(t, []string{"I have lots", "", "", "to say."}, obj.Attributes[0].Values)
	assert.Equal(t, []string{"I have lots", "to say."}, obj.Attributes[0].WithContent())

	source, ok := obj.Source()
	require.True(t, ok)
	assert.Equal(t, text, source)
}

func TestParseObjectEmptyValues(t *testing.T) {
	text := "as-name:     REMARKABLE\n" +
		"remarks:\n" +
		"remarks:               \n" +
		"remarks:     ^^^^^^^^^^ nothing here\n"

	obj, err := ParseObject(context.Background(), text)
	require.NoError(t, err)

	expected := NewObject(
		mustAttribute(t, "as-name", "REMARKABLE"),
		mustAttribute(t, "remarks", ""),
		mustAttribute(t, "remarks", ""),
		mustAttribute(t, "remarks", "^^^^^^^^^^ nothing here"),
	)
	assert.True(t, expected.Equal(obj))
	assert.Equal(t, []string{"^^^^^^^^^^ nothing here"}, obj.Get("remarks"))
}

func TestParseObjectErrors(t *testing.T) {
	cases := map[string]string{
		"missing separator":     "role;        ACME Company\n",
		"digit first":           "1remarks: x\n",
		"dash last":             "remarks-: x\n",
		"space in name":         "re marks: x\n",
		"leading continuation":  "  orphan\nremarks: x\n",
		"second object":         "a1: 1\n\nb1: 2\n",
		"server message inside": "a1: 1\n\n% msg\nb1: 2\n",
	}

	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseObject(context.Background(), text)
			require.Error(t, err)

			_, ok := eris.Cause(err).(ParserError)
			assert.True(t, ok, "expected a ParserError, got %v", err)
		})
	}
}

func TestParseObjectWithoutAttributes(t *testing.T) {
	for _, text := range []string{"", "\n\n", "# only a comment\n", "% only a message\n"} {
		_, err := ParseObject(context.Background(), text)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrEmptyObject))
	}
}

func TestReadObjectReportsInvalidValues(t *testing.T) {
	lex := NewLexer(context.Background(), strings.NewReader("remarks: cafĀ\nsource: RIPE\n"))

	obj, err := ReadObject(lex)
	require.NoError(t, err)
	assert.Equal(t, 2, obj.Len())

	require.Len(t, lex.Warnings(), 1)
	cause, ok := eris.Cause(lex.Warnings()[0]).(ParserError)
	require.True(t, ok)
	assert.Equal(t, 1, cause.Location()[0])
	assert.Contains(t, cause.Message(), "extended ASCII")
}

func TestReadObjectScopeInfos(t *testing.T) {
	lex := NewLexer(context.Background(), strings.NewReader("remarks:   one\n           two\nsource:    RIPE\n"))

	_, err := ReadObject(lex)
	require.NoError(t, err)

	scopes := lex.ScopeInfos()
	require.Len(t, scopes, 2)
	assert.Equal(t, [2]int{1, 0}, scopes[0].Start)
	assert.Equal(t, 2, scopes[0].End[0])
	assert.Equal(t, "remarks:        one\n                two", scopes[0].HoverText)
	assert.Equal(t, [2]int{3, 0}, scopes[1].Start)
}

func TestObjectString(t *testing.T) {
	obj := NewObject(
		mustAttribute(t, "role", "ACME Company"),
		mustAttribute(t, "address", "Packet Street 6", "128 Series of Tubes", "Internet"),
		mustAttribute(t, "email", "rpsl-rs@github.com"),
		mustAttribute(t, "nic-hdl", "RPSL1-RIPE"),
		mustAttribute(t, "source", "RIPE"),
	)

	expected := "role:           ACME Company\n" +
		"address:        Packet Street 6\n" +
		"                128 Series of Tubes\n" +
		"                Internet\n" +
		"email:          rpsl-rs@github.com\n" +
		"nic-hdl:        RPSL1-RIPE\n" +
		"source:         RIPE\n" +
		"\n"
	assert.Equal(t, expected, obj.String())

	_, ok := obj.Source()
	assert.False(t, ok)
}

func TestObjectGet(t *testing.T) {
	obj := roleACME(t)

	assert.Equal(t, []string{"ACME Company"}, obj.Get("role"))
	assert.Equal(t, []string{"Packet Street 6", "128 Series of Tubes", "Internet"}, obj.Get("address"))
	assert.Equal(t, []string{"RPSL1-RIPE"}, obj.Get("NIC-HDL"))
	assert.Empty(t, obj.Get("mnt-by"))
}

func TestObjectJSON(t *testing.T) {
	obj := NewObject(
		mustAttribute(t, "role", "ACME Company"),
		mustAttribute(t, "address", "Packet Street 6", "", "Internet"),
	)

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"attributes": [
			{"name": "role", "values": ["ACME Company"]},
			{"name": "address", "values": ["Packet Street 6", null, "Internet"]}
		]
	}`, string(data))

	data, err = json.Marshal(NewObject())
	require.NoError(t, err)
	assert.JSONEq(t, `{"attributes": []}`, string(data))
}

func TestNewAttributeValidation(t *testing.T) {
	valid := []string{"remarks", "aut-num", "ASNumber", "route6", "a"}
	for _, name := range valid {
		_, err := NewAttribute(name, "value")
		assert.NoError(t, err, name)
	}

	invalid := map[string]error{
		"":         ErrEmptyName,
		"réle":     ErrNonASCIIName,
		"1remarks": ErrNameFirstChar,
		"_remarks": ErrNameFirstChar,
		"remarks-": ErrNameLastChar,
		"remarks_": ErrNameLastChar,
		"re:marks": ErrNameChar,
	}
	for name, expected := range invalid {
		_, err := NewAttribute(name, "value")
		require.Error(t, err, name)
		assert.True(t, eris.Is(err, expected), "%q: %v", name, err)
	}

	_, err := NewAttribute("remarks", "tab\tinside")
	assert.True(t, eris.Is(err, ErrControlCharValue))

	_, err = NewAttribute("remarks", "☃")
	assert.True(t, eris.Is(err, ErrNonExtendedASCIIValue))

	attr, err := NewAttribute("remarks")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, attr.Values)
	assert.Equal(t, "remarks:        \n", attr.String())
}
