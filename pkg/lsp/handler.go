package lsp

import (
	contextpkg "context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cespare/xxhash/v2"
	"github.com/ngld/rpsl-parser/pkg/parser"
	"github.com/ngld/rpsl-parser/pkg/splitter"
	"github.com/rotisserie/eris"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var (
	version = "0.0.1"
	lspCode = "rpsl-lsp-error"

	analysisTimeout = 1000 * time.Millisecond
)

type docCacheEntry struct {
	uri     string
	content string
	scopes  []parser.ScopeInfo
	sync.Mutex
	digest         uint64
	version        int32
	pendingVersion int32
	analysed       bool

	cancelLock sync.Mutex
	ctxCancel  contextpkg.CancelFunc
}

func (d *docCacheEntry) setCancel(cancel contextpkg.CancelFunc) {
	d.cancelLock.Lock()
	d.ctxCancel = cancel
	d.cancelLock.Unlock()
}

// cancel aborts a running analysis, if any.
func (d *docCacheEntry) cancel() {
	d.cancelLock.Lock()
	defer d.cancelLock.Unlock()

	if d.ctxCancel != nil {
		d.ctxCancel()
	}
}

// Analysis is the outcome of parsing every object of a document.
type Analysis struct {
	Diagnostics []protocol.Diagnostic
	Scopes      []parser.ScopeInfo
	Objects     int
}

func processLexerErrors(errors []error, severity protocol.DiagnosticSeverity, lineOffset int) []protocol.Diagnostic {
	msgs := make([]protocol.Diagnostic, len(errors))
	for idx, err := range errors {
		var loc [4]int
		message := err.Error()
		if errInfo, ok := eris.Cause(err).(parser.ParserError); ok {
			loc = errInfo.Shift(lineOffset).Location()
			message = errInfo.Message()
		} else {
			loc = [4]int{lineOffset + 1, 0, lineOffset + 1, 0}
		}

		msgs[idx] = protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{
					Line:      uint32(loc[0] - 1),
					Character: uint32(loc[1]),
				},
				End: protocol.Position{
					Line:      uint32(loc[2] - 1),
					Character: uint32(loc[3]),
				},
			},
			Severity: &severity,
			Code: &protocol.IntegerOrString{
				Value: lspCode,
			},
			Message: message,
		}
	}

	return msgs
}

// Analyse splits content into objects and parses each one. Diagnostics and
// scopes are positioned relative to the whole document.
func Analyse(ctx contextpkg.Context, content string, opts ...splitter.Option) (Analysis, error) {
	result := Analysis{
		Diagnostics: make([]protocol.Diagnostic, 0),
		Scopes:      make([]parser.ScopeInfo, 0),
	}

	for span, text := range splitter.New(content, opts...).Spans() {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		lexer := parser.NewLexer(ctx, strings.NewReader(text))
		_, err := parser.ReadObject(lexer)
		if err != nil {
			if eris.Is(err, parser.ErrEmptyObject) {
				continue
			}
			lexer.Report(err)
		} else {
			result.Objects++
		}

		lineOffset := span.Line - 1
		result.Diagnostics = append(result.Diagnostics, processLexerErrors(lexer.Errors(), protocol.DiagnosticSeverityError, lineOffset)...)
		result.Diagnostics = append(result.Diagnostics, processLexerErrors(lexer.Warnings(), protocol.DiagnosticSeverityInformation, lineOffset)...)

		for _, scope := range lexer.ScopeInfos() {
			result.Scopes = append(result.Scopes, scope.Shift(lineOffset))
		}
	}

	return result, nil
}

func analyseDoc(context *glsp.Context, doc *docCacheEntry, clk clock.Clock, opts []splitter.Option) {
	defer func() {
		p := recover()
		if p != nil {
			err := eris.New(fmt.Sprint(p))
			protocol.Trace(context, protocol.MessageTypeError, eris.ToString(err, true))
		}
	}()

	digest := xxhash.Sum64String(doc.content)
	if doc.analysed && digest == doc.digest {
		protocol.Trace(context, protocol.MessageTypeInfo, fmt.Sprintf("Skipping unchanged %s", doc.uri))
		return
	}

	ctx, cancel := clk.WithTimeout(contextpkg.Background(), analysisTimeout)
	doc.setCancel(cancel)
	defer doc.cancel()

	protocol.Trace(context, protocol.MessageTypeInfo, fmt.Sprintf("Parsing %s", doc.uri))
	start := clk.Now()

	analysis, err := Analyse(ctx, doc.content, opts...)
	if err != nil {
		protocol.Trace(context, protocol.MessageTypeInfo, fmt.Sprintf("Canceled %s (%v)", doc.uri, err))
		return
	}

	version := uint32(doc.version)
	context.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         doc.uri,
		Version:     &version,
		Diagnostics: analysis.Diagnostics,
	})

	doc.scopes = analysis.Scopes
	doc.digest = digest
	doc.analysed = true

	duration := clk.Since(start).Milliseconds()
	protocol.Trace(context, protocol.MessageTypeInfo, fmt.Sprintf("Processed %d objects of %s in %dms", analysis.Objects, doc.uri, duration))
}

func findScope(scopes []parser.ScopeInfo, position protocol.Position) *parser.ScopeInfo {
	line := int(position.Line) + 1
	col := int(position.Character)
	for idx, info := range scopes {
		if line < info.Start[0] || line > info.End[0] {
			continue
		}
		if line == info.Start[0] && col < info.Start[1] {
			continue
		}
		if line == info.End[0] && col > info.End[1] {
			continue
		}

		return &scopes[idx]
	}

	return nil
}

// GetHandler builds the protocol handler. clk is used for analysis deadlines
// and timings, opts decide how documents are split into objects.
func GetHandler(clk clock.Clock, opts ...splitter.Option) *protocol.Handler {
	var handler *protocol.Handler
	var cacheLock sync.Mutex
	docCache := make(map[string]*docCacheEntry)

	lookup := func(uri string) (*docCacheEntry, bool) {
		cacheLock.Lock()
		defer cacheLock.Unlock()

		doc, found := docCache[uri]
		return doc, found
	}

	handler = &protocol.Handler{
		CancelRequest: func(context *glsp.Context, params *protocol.CancelParams) error {
			return nil
		},
		Progress: func(context *glsp.Context, params *protocol.ProgressParams) error {
			return nil
		},

		Initialize: func(context *glsp.Context, params *protocol.InitializeParams) (interface{}, error) {
			if params.Trace != nil {
				protocol.SetTraceValue(*params.Trace)
			}

			caps := handler.CreateServerCapabilities()
			caps.TextDocumentSync = protocol.TextDocumentSyncKindIncremental

			return protocol.InitializeResult{
				Capabilities: caps,
				ServerInfo: &protocol.InitializeResultServerInfo{
					Name:    "RPSL LSP",
					Version: &version,
				},
			}, nil
		},
		Initialized: func(context *glsp.Context, params *protocol.InitializedParams) error {
			return nil
		},
		Shutdown: func(context *glsp.Context) error {
			return nil
		},
		Exit: func(context *glsp.Context) error {
			return nil
		},

		LogTrace: func(context *glsp.Context, params *protocol.LogTraceParams) error {
			return nil
		},
		SetTrace: func(context *glsp.Context, params *protocol.SetTraceParams) error {
			protocol.SetTraceValue(params.Value)
			return nil
		},

		TextDocumentDidOpen: func(context *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
			doc := &docCacheEntry{
				uri:     params.TextDocument.URI,
				version: params.TextDocument.Version,
				content: params.TextDocument.Text,
			}

			cacheLock.Lock()
			docCache[doc.uri] = doc
			cacheLock.Unlock()

			go func() {
				doc.Lock()
				defer doc.Unlock()
				analyseDoc(context, doc, clk, opts)
			}()
			return nil
		},
		TextDocumentDidChange: func(context *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
			item, found := lookup(params.TextDocument.URI)
			if !found {
				return eris.Errorf("Document %s not found", params.TextDocument.URI)
			}

			atomic.StoreInt32(&item.pendingVersion, params.TextDocument.Version)
			item.cancel()

			go func() {
				defer func() {
					p := recover()
					if p != nil {
						err := eris.New(fmt.Sprint(p))
						protocol.Trace(context, protocol.MessageTypeError, eris.ToString(err, true))
					}
				}()

				// Run the text updates in a goroutine to avoid blocking the server on the lock
				item.Lock()
				defer item.Unlock()
				item.version = params.TextDocument.Version

				for _, change := range params.ContentChanges {
					if ev, ok := change.(protocol.TextDocumentContentChangeEvent); ok {
						start, end := ev.Range.IndexesIn(item.content)
						item.content = item.content[:start] + ev.Text + item.content[end:]
					} else if ev, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
						item.content = ev.Text
					}
				}

				if atomic.LoadInt32(&item.pendingVersion) == params.TextDocument.Version {
					// Only trigger the analysis for the latest version
					analyseDoc(context, item, clk, opts)
				}
			}()

			return nil
		},
		TextDocumentDidClose: func(context *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
			cacheLock.Lock()
			delete(docCache, params.TextDocument.URI)
			cacheLock.Unlock()
			return nil
		},

		TextDocumentHover: func(context *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
			doc, found := lookup(params.TextDocument.URI)
			if !found {
				return nil, eris.Errorf("Document %s not found", params.TextDocument.URI)
			}

			doc.Lock()
			info := findScope(doc.scopes, params.Position)
			doc.Unlock()
			if info == nil {
				return nil, nil
			}

			return &protocol.Hover{
				Range: &protocol.Range{
					Start: protocol.Position{
						Line:      uint32(info.Start[0]) - 1,
						Character: uint32(info.Start[1]),
					},
					End: protocol.Position{
						Line:      uint32(info.End[0]) - 1,
						Character: uint32(info.End[1]),
					},
				},
				Contents: protocol.MarkupContent{
					Kind:  protocol.MarkupKindPlainText,
					Value: info.HoverText,
				},
			}, nil
		},
	}

	return handler
}
