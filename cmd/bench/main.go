package main

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/alecthomas/kong"
	"github.com/ngld/rpsl-parser/pkg/parser"
	"github.com/ngld/rpsl-parser/pkg/splitter"
	"github.com/rotisserie/eris"
)

type CLI struct {
	File       string `arg:"" type:"existingfile" help:"RPSL file to parse."`
	CPUProfile string `help:"Write a CPU profile to this file." type:"path"`
}

// run feeds every object of the file to the parser and returns the number of
// objects seen and the errors of those that failed. Blocks holding only
// comments are not counted.
func run(ctx context.Context, path string) (int, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, eris.Wrap(err, "unable to read file")
	}
	defer f.Close()

	split, err := splitter.FromReader(f)
	if err != nil {
		return 0, nil, err
	}

	count := 0
	var failures []error
	for object, ok := split.Next(); ok; object, ok = split.Next() {
		_, err := parser.ParseObject(ctx, object)
		if eris.Is(err, parser.ErrEmptyObject) {
			continue
		}

		count++
		if err != nil {
			failures = append(failures, eris.Wrapf(err, "object at line %d", split.Span().Line))
		}
	}

	return count, failures, nil
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("bench"),
		kong.Description("Split an RPSL file and parse every object."),
		kong.UsageOnError(),
	)

	if cli.CPUProfile != "" {
		f, err := os.Create(cli.CPUProfile)
		if err != nil {
			panic(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	count, failures, err := run(context.Background(), cli.File)
	if err != nil {
		fmt.Println(eris.ToString(err, true))
		os.Exit(1)
	}

	for _, err := range failures {
		fmt.Println(eris.ToString(err, true))
	}
	fmt.Printf("%d objects, %d failed\n", count, len(failures))
}
