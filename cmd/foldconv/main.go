package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/profilekit/foldconv/internal/folded"
	"github.com/profilekit/foldconv/internal/grafana"
	"github.com/profilekit/foldconv/internal/linesource"
	"github.com/profilekit/foldconv/internal/nestedset"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		jsonOutput       bool
		jsonSimpleOutput bool
		separator        string
		outputPath       string
	)
	flag.BoolVar(&jsonOutput, "json", false, "output as JSON (Grafana data frame format)")
	flag.BoolVar(&jsonSimpleOutput, "json-simple", false, "output as simple JSON array")
	flag.StringVar(&separator, "separator", string(folded.DefaultSeparator), "stack separator character")
	flag.StringVar(&separator, "s", string(folded.DefaultSeparator), "stack separator character (shorthand)")
	flag.StringVar(&outputPath, "o", "", "output file (default stdout)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"usage: %s [flags] [input]\n\nConvert folded flamegraph format to Grafana's nested set model.\nInput may be a file, an http(s) URL, or - for stdin (the default).\n\n",
			os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	sep, size := utf8.DecodeRuneInString(separator)
	if sep == utf8.RuneError || size != len(separator) {
		log.Fatal().Str("separator", separator).Msg("separator must be a single character")
	}

	lines, err := readInput(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("can't read input")
	}

	rows := nestedset.Aggregate(lines, sep)

	format := grafana.FormatCSV
	switch {
	case jsonOutput:
		format = grafana.FormatJSON
	case jsonSimpleOutput:
		format = grafana.FormatJSONSimple
	}

	out, closeOut, err := openOutput(outputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("can't open output")
	}
	err = grafana.Write(out, format, rows)
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatal().Err(err).Msg("can't write output")
	}
}

func readInput(input string) ([]string, error) {
	if linesource.IsURL(input) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return linesource.NewClient(30*time.Second, 2).FetchLines(ctx, input)
	}
	return linesource.FromFile(input)
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
