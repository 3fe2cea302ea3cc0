// statediff compares two state seed files and prints what it would take to
// turn the first into the second.
//
// Usage:
//
//	go run ./cmd/statediff [-json] [-flat] <a.yaml> <b.yaml>
//
// Exit status is 0 when the trees match, 1 when they differ, 2 on error.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/l1jgo/simcore/internal/core/state"
	"github.com/l1jgo/simcore/internal/data"
)

func main() {
	jsonOut := flag.Bool("json", false, "print the flat diff as a JSON object (absent paths are null)")
	flatOnly := flag.Bool("flat", false, "skip the unified text diff")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: statediff [-json] [-flat] <a.yaml> <b.yaml>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	differ, err := run(os.Stdout, flag.Arg(0), flag.Arg(1), *jsonOut, *flatOnly)
	if err != nil {
		fmt.Fprintf(os.Stderr, "statediff: %v\n", err)
		os.Exit(2)
	}
	if differ {
		os.Exit(1)
	}
}

func run(w io.Writer, pathA, pathB string, jsonOut, flatOnly bool) (bool, error) {
	a, err := data.LoadStateSeed(pathA)
	if err != nil {
		return false, err
	}
	b, err := data.LoadStateSeed(pathB)
	if err != nil {
		return false, err
	}

	d := state.Diff(a, b)
	if len(d) == 0 {
		return false, nil
	}

	if jsonOut {
		out := make(map[string]any, len(d))
		for k, v := range d {
			if state.IsAbsent(v) {
				v = nil
			}
			out[k] = v
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return true, fmt.Errorf("encode diff: %w", err)
		}
	} else if err := writeFlat(w, d); err != nil {
		return true, err
	}

	if flatOnly || jsonOut {
		return true, nil
	}
	text, err := state.RenderDiff(pathA, a, pathB, b)
	if err != nil {
		return true, err
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, text)
	return true, nil
}

func writeFlat(w io.Writer, d map[string]any) error {
	paths := make([]string, 0, len(d))
	for k := range d {
		paths = append(paths, k)
	}
	sort.Strings(paths)

	for _, p := range paths {
		v := d[p]
		if state.IsAbsent(v) {
			fmt.Fprintf(w, "- %s\n", p)
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", p, err)
		}
		fmt.Fprintf(w, "+ %s = %s\n", p, raw)
	}
	return nil
}
