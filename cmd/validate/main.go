// Command validate re-checks a determinism fixture file (as written by
// genvectors, or by another client) against this implementation's generator,
// weighted shuffle and personalization rules.
//
// Usage:
//
//	go run ./cmd/validate -vectors testdata/vectors.json
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/campus-foryou-service/internal/vectors"
	"github.com/goccy/go-json"
)

func main() {
	path := flag.String("vectors", "", "path to the vectors JSON file")
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*path))
}

func run(path string) int {
	fmt.Println("=== For You Determinism Validation ===")
	fmt.Println()

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read vectors: %v\n", err)
		return 1
	}
	var f vectors.File
	if err := json.Unmarshal(data, &f); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse vectors: %v\n", err)
		return 1
	}

	problems := vectors.Check(f)
	status := "\033[32mPASS\033[0m"
	if len(problems) > 0 {
		status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(problems))
	}
	fmt.Printf("  %-42s %s\n", fmt.Sprintf("%d vectors (%s)", len(f.Vectors), f.Generator), status)

	if len(problems) == 0 {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println()
	for i, p := range problems {
		fmt.Printf("  [%d] %s\n", i+1, p)
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}
