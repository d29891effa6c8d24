package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/ngld/rpsl-parser/internal/config"
	"github.com/ngld/rpsl-parser/pkg/parser"
	"github.com/ngld/rpsl-parser/pkg/splitter"
	"github.com/rotisserie/eris"
	"github.com/tliron/kutil/logging"
	_ "github.com/tliron/kutil/logging/simple"
	"golang.org/x/sync/errgroup"
)

var log = logging.GetLogger("parser")

type CLI struct {
	Files         []string `arg:"" type:"existingfile" help:"RPSL files to parse."`
	StrictBlank   bool     `help:"Only treat empty lines as object separators." default:"${config_strict_blank}"`
	CommentBreaks string   `help:"Line prefixes that separate objects instead of belonging to them." default:"${config_comment_breaks}"`
	Jobs          int      `short:"j" help:"Number of files parsed in parallel." default:"${config_jobs}"`
	Dump          bool     `help:"Print a Go dump of the parsed objects instead of JSON."`
	Verbose       int      `short:"v" type:"counter" help:"Increase log verbosity." default:"${config_verbosity}"`
}

type fileResult struct {
	Path    string           `json:"path"`
	Objects []*parser.Object `json:"objects"`
}

func (c *CLI) splitterOptions() []splitter.Option {
	cfg := config.Config{StrictBlank: c.StrictBlank, CommentBreaks: c.CommentBreaks}
	return cfg.SplitterOptions()
}

func (c *CLI) parseFile(ctx context.Context, path string) (fileResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return fileResult{Path: path}, eris.Wrapf(err, "failed to open %s", path)
	}

	objects, err := parser.ParseAll(ctx, string(content), c.splitterOptions()...)
	log.Infof("Parsed %d objects from %s (%s)", len(objects), path, humanize.Bytes(uint64(len(content))))
	if err != nil {
		return fileResult{Path: path, Objects: objects}, eris.Wrapf(err, "failed to parse %s", path)
	}

	return fileResult{Path: path, Objects: objects}, nil
}

func (c *CLI) Run(ctx context.Context) error {
	results := make([]fileResult, len(c.Files))
	errs := make([]error, len(c.Files))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(c.Jobs)
	for idx, path := range c.Files {
		group.Go(func() error {
			results[idx], errs[idx] = c.parseFile(ctx, path)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	if c.Dump {
		spew.Fdump(os.Stdout, results)
	} else {
		output, err := json.Marshal(results)
		if err != nil {
			return eris.Wrap(err, "failed to generate JSON")
		}
		fmt.Println(string(output))
	}

	return result.ErrorOrNil()
}

func main() {
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = config.Default()
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("parser"),
		kong.Description("Split RPSL files into objects and print them as JSON."),
		kong.UsageOnError(),
		kong.Vars{
			"config_strict_blank":   strconv.FormatBool(cfg.StrictBlank),
			"config_comment_breaks": cfg.CommentBreaks,
			"config_jobs":           strconv.Itoa(cfg.Jobs),
			"config_verbosity":      strconv.Itoa(cfg.Verbosity),
		},
	)

	logging.Configure(cli.Verbose, cfg.LogPath())
	if cfgErr != nil {
		log.Warningf("Failed to load config: %s", eris.ToString(cfgErr, cli.Verbose > 1))
	}

	if cli.Jobs < 1 {
		cli.Jobs = 1
	}

	kctx.BindTo(context.Background(), (*context.Context)(nil))
	if err := kctx.Run(); err != nil {
		os.Stderr.WriteString(fmt.Sprintf("Error: %s\n", eris.ToString(err, cli.Verbose > 1)))
		os.Exit(1)
	}
}
