package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rentalai/pkg/generator"
)

func TestRunIsDeterministic(t *testing.T) {
	opts := options{count: 5, seed: 42, now: "2025-03-01T12:00:00Z", pretty: false}

	var first, second bytes.Buffer
	if err := run(opts, &first, &bytes.Buffer{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := run(opts, &second, &bytes.Buffer{}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("expected identical output for the same seed")
	}

	var seeds []generator.Seed
	if err := json.Unmarshal(first.Bytes(), &seeds); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(seeds) != 5 {
		t.Fatalf("expected 5 seeds, got %d", len(seeds))
	}
}

func TestRunWritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "listings.json")
	var stderr bytes.Buffer
	if err := run(options{count: 3, seed: 7, out: out, pretty: true}, &bytes.Buffer{}, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("[\n")) {
		t.Fatalf("expected indented json array")
	}
	if !strings.Contains(stderr.String(), "generated 3 listings") {
		t.Fatalf("unexpected summary %q", stderr.String())
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	if err := run(options{count: -1}, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for negative count")
	}
	if err := run(options{count: 1, now: "yesterday"}, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for malformed -now")
	}
}
