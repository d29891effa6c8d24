package parser

import (
	"context"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/ngld/rpsl-parser/pkg/splitter"
	"github.com/rotisserie/eris"
)

// ErrMessageInsideObject is reported for a server message that is not
// separated from the surrounding attributes by a blank line.
var ErrMessageInsideObject = eris.New("server message inside an object")

// ParseWhoisResponse parses the objects contained in a WHOIS server response.
// Server messages ('%' lines) are dropped. They may precede or follow an
// object, but two blocks of attributes joined only by server messages are
// rejected with ErrMessageInsideObject.
func ParseWhoisResponse(ctx context.Context, response string) ([]*Object, error) {
	var result *multierror.Error
	objects := make([]*Object, 0)

	prevEnd := -1
	for span, text := range splitter.New(response, splitter.WithCommentBreaks("%")).Spans() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		gap := prevEnd >= 0 && !hasBlankLine(response[prevEnd:span.Start])
		prevEnd = span.End
		if gap {
			result = multierror.Append(result, eris.Wrapf(ErrMessageInsideObject, "object at line %d", span.Line))
			continue
		}

		obj, err := parseSpan(ctx, span, text)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if obj != nil {
			objects = append(objects, obj)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	if len(objects) == 0 {
		return nil, eris.New("response does not contain any RPSL objects")
	}

	return objects, nil
}

// hasBlankLine reports whether the separator text between two objects holds at
// least one line without content.
func hasBlankLine(separator string) bool {
	for _, line := range strings.Split(strings.TrimSuffix(separator, "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			return true
		}
	}

	return false
}
