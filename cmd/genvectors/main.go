// Command genvectors writes the weighted-shuffle determinism fixtures used to
// check other clients of the For You rail against this implementation.
//
// Usage:
//
//	go run ./cmd/genvectors -out testdata/vectors.json
//	go run ./cmd/genvectors -out testdata/vectors.json -seeds 0,42,4294967295
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/campus-foryou-service/internal/vectors"
	"github.com/goccy/go-json"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the vectors JSON file")
	seedList := flag.String("seeds", "", "comma-separated seeds (default: built-in set)")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	seeds := vectors.DefaultSeeds
	if *seedList != "" {
		parsed, err := parseSeeds(*seedList)
		if err != nil {
			return err
		}
		seeds = parsed
	}

	f := vectors.Generate(seeds, vectors.DefaultContexts())
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil { //nolint:gosec // fixture file, not secret
		return fmt.Errorf("write %s: %w", *out, err)
	}
	log.Printf("wrote %d vectors to %s", len(f.Vectors), *out)
	return nil
}

func parseSeeds(s string) ([]uint32, error) {
	parts := strings.Split(s, ",")
	seeds := make([]uint32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", p, err)
		}
		seeds = append(seeds, uint32(v))
	}
	return seeds, nil
}
