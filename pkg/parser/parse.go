package parser

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/ngld/rpsl-parser/pkg/splitter"
	"github.com/rotisserie/eris"
)

// ParseAll splits source into objects and parses each of them. Blocks made only
// of comments are ignored. Objects that fail to parse are skipped; their errors
// are collected into a *multierror.Error returned next to the parsed objects.
func ParseAll(ctx context.Context, source string, opts ...splitter.Option) ([]*Object, error) {
	var result *multierror.Error
	objects := make([]*Object, 0)

	for span, text := range splitter.New(source, opts...).Spans() {
		if ctx.Err() != nil {
			return objects, ctx.Err()
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

	return objects, result.ErrorOrNil()
}

// parseSpan parses a single split object. A nil object without error means the
// text held no attributes.
func parseSpan(ctx context.Context, span splitter.Span, text string) (*Object, error) {
	obj, err := ParseObject(ctx, text)
	if err != nil {
		if eris.Is(err, ErrEmptyObject) {
			return nil, nil
		}

		return nil, eris.Wrapf(err, "object at line %d", span.Line)
	}

	return obj, nil
}
