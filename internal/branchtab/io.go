package branchtab

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"popcoal/internal/labels"
)

// WritePatterns prints the table as site-pattern lines, ordered
// canonically by bitmask, under a "# SitePat Prob" header.
func WritePatterns(w io.Writer, t *BranchTab, idx *labels.Index) error {
	return WritePatternsAs(w, t, idx, "Prob")
}

// WritePatternsAs is WritePatterns with a caller-chosen value column
// name, for residual output and the like.
func WritePatternsAs(w io.Writer, t *BranchTab, idx *labels.Index, column string) error {
	if _, err := fmt.Fprintf(w, "#%14s %10s\n", "SitePat", column); err != nil {
		return err
	}
	ids, vals := t.ToArrays()
	for i, id := range ids {
		lbl, err := idx.Pattern(id)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%15s %10.7f\n", lbl, vals[i]); err != nil {
			return err
		}
	}
	return nil
}

// InferIndex scans site-pattern lines and registers every label it
// meets, in first-seen order. Use it to compare pattern files without
// a population model in hand.
func InferIndex(r io.Reader) (*labels.Index, error) {
	idx := labels.NewIndex()
	sc := bufio.NewScanner(r)
	seenHeader := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if strings.HasPrefix(strings.TrimSpace(strings.TrimPrefix(line, "#")), "SitePat") {
				seenHeader = true
			}
			continue
		}
		if !seenHeader {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		for _, name := range strings.Split(fields[0], ":") {
			if _, ok := idx.Bit(name); ok {
				continue
			}
			if err := idx.AddSamples(name, 1); err != nil {
				return nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return idx, nil
}

// ReadPatterns parses site-pattern lines of the form "a:b 0.25". Lines
// before a header beginning "# SitePat" are ignored, as are comments
// and blank lines. Patterns absent from the input are simply absent
// from the table, which downstream code treats as zero.
func ReadPatterns(r io.Reader, idx *labels.Index) (*BranchTab, error) {
	tab := New()
	sc := bufio.NewScanner(r)
	lineno := 0
	seenHeader := false
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if strings.HasPrefix(strings.TrimSpace(strings.TrimPrefix(line, "#")), "SitePat") {
				seenHeader = true
			}
			continue
		}
		if !seenHeader {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: want \"pattern value\", got %q", lineno, line)
		}
		id, err := idx.ParsePattern(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad value %q: %w", lineno, fields[1], err)
		}
		if _, dup := tab.m[id]; dup {
			return nil, fmt.Errorf("line %d: duplicate pattern %s", lineno, fields[0])
		}
		tab.m[id] = v
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !seenHeader {
		return nil, fmt.Errorf("no \"# SitePat\" header found")
	}
	return tab, nil
}
