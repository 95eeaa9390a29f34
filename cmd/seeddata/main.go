package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"rentalai/pkg/generator"
)

type options struct {
	count  int
	seed   int64
	out    string
	now    string
	pretty bool
}

func main() {
	var opts options
	flag.IntVar(&opts.count, "n", 100, "number of listings to generate")
	flag.Int64Var(&opts.seed, "seed", 0, "random seed (0 seeds from the clock)")
	flag.StringVar(&opts.out, "out", "", "output file (default stdout)")
	flag.StringVar(&opts.now, "now", "", "reference time in RFC3339 (default current time)")
	flag.BoolVar(&opts.pretty, "pretty", true, "indent JSON output")
	flag.Parse()

	if err := run(opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "seeddata: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, stdout, stderr io.Writer) error {
	if opts.count < 0 {
		return fmt.Errorf("-n must be >= 0, got %d", opts.count)
	}
	now := time.Now().UTC()
	if opts.now != "" {
		parsed, err := time.Parse(time.RFC3339, opts.now)
		if err != nil {
			return fmt.Errorf("invalid -now: %w", err)
		}
		now = parsed
	}
	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	gen := generator.New(generator.Config{Rand: rand.New(rand.NewSource(seed)), Now: now})
	seeds, err := gen.Batch(opts.count)
	if err != nil {
		return err
	}

	var raw []byte
	if opts.pretty {
		raw, err = json.MarshalIndent(seeds, "", "  ")
	} else {
		raw, err = json.Marshal(seeds)
	}
	if err != nil {
		return fmt.Errorf("encode seeds: %w", err)
	}
	raw = append(raw, '\n')

	if opts.out == "" {
		_, err = stdout.Write(raw)
		return err
	}
	if dir := filepath.Dir(opts.out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(opts.out, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}
	if len(seeds) > 0 {
		first := seeds[0].Listing
		fmt.Fprintf(stderr, "generated %d listings (seed %d), first: %s, %d руб/мес, %s (%s)\n",
			len(seeds), seed, first.Title, first.Price, first.Metro, first.MetroDistance)
	}
	return nil
}
