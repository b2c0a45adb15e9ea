// Package lgo parses population-description files: a line-oriented
// grammar declaring parameters, segments, admixture, and derivation
// edges, from which it builds the parameter store, the label index,
// and the population network.
package lgo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"popcoal/internal/labels"
	"popcoal/internal/params"
	"popcoal/internal/popnet"
)

// Model is a parsed population description.
type Model struct {
	Params *params.Store
	Labels *labels.Index
	Net    *popnet.Network
	Root   popnet.SegID
}

// ParseFile parses the named file. Diagnostics carry the file name and
// line number.
func ParseFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", path, err)
	}
	return m, nil
}

// Parse reads a population description. Names must be declared before
// use: parameters before the segments that reference them, segments
// before the mix and derive lines that wire them.
func Parse(r io.Reader) (*Model, error) {
	p := &parser{
		ps:   params.NewStore(),
		idx:  labels.NewIndex(),
		segs: make(map[string]popnet.SegID),
	}
	p.net = popnet.New(p.ps)

	sc := bufio.NewScanner(r)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := p.line(fields); err != nil {
			return nil, fmt.Errorf("%d: %w", lineno, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%d: %w", lineno, err)
	}

	if p.net.NSamples() == 0 {
		return nil, fmt.Errorf("%d: no segment declares samples", lineno)
	}
	root, err := p.net.Root()
	if err != nil {
		return nil, fmt.Errorf("%d: %w", lineno, err)
	}
	return &Model{Params: p.ps, Labels: p.idx, Net: p.net, Root: root}, nil
}

type parser struct {
	ps   *params.Store
	idx  *labels.Index
	net  *popnet.Network
	segs map[string]popnet.SegID
}

func (p *parser) line(fields []string) error {
	switch fields[0] {
	case "time":
		return p.param(fields, params.Time)
	case "twoN":
		return p.param(fields, params.TwoN)
	case "mixFrac":
		return p.param(fields, params.MixFrac)
	case "segment":
		return p.segment(fields)
	case "mix":
		return p.mix(fields)
	case "derive":
		return p.derive(fields)
	default:
		return fmt.Errorf("unknown directive: %s", fields[0])
	}
}

// param handles "time|twoN|mixFrac {fixed|free|constrained} name = expr".
func (p *parser) param(fields []string, cat params.Category) error {
	if len(fields) < 3 {
		return fmt.Errorf("%s: want \"%s {fixed|free|constrained} name = value\"",
			fields[0], fields[0])
	}
	var status params.Status
	switch fields[1] {
	case "fixed":
		status = params.Fixed
	case "free":
		status = params.Free
	case "constrained":
		status = params.Constrained
	default:
		return fmt.Errorf("%s: unknown status %q", fields[0], fields[1])
	}

	name, expr, err := splitAssign(fields[2:])
	if err != nil {
		return fmt.Errorf("%s: %w", fields[0], err)
	}

	if status == params.Constrained {
		_, err := p.ps.AddConstrained(name, expr, cat)
		return err
	}
	value, err := strconv.ParseFloat(expr, 64)
	if err != nil {
		return fmt.Errorf("%s %s: value %q is not numeric", fields[0], name, expr)
	}
	_, err = p.ps.Add(name, value, cat, status)
	return err
}

// splitAssign rejoins "name = expr" fields, tolerating spaces around
// the equals sign.
func splitAssign(fields []string) (name, expr string, err error) {
	joined := strings.Join(fields, " ")
	i := strings.IndexByte(joined, '=')
	if i < 0 {
		return "", "", fmt.Errorf("missing \"=\" in %q", joined)
	}
	name = strings.TrimSpace(joined[:i])
	expr = strings.TrimSpace(joined[i+1:])
	if name == "" || expr == "" {
		return "", "", fmt.Errorf("malformed assignment %q", joined)
	}
	if strings.ContainsAny(name, " \t") {
		return "", "", fmt.Errorf("malformed name %q", name)
	}
	return name, expr, nil
}

// segment handles "segment name t=T twoN=N [samples=k]".
func (p *parser) segment(fields []string) error {
	if len(fields) < 4 {
		return fmt.Errorf("segment: want \"segment name t=T twoN=N [samples=k]\"")
	}
	name := fields[1]
	var tName, nName string
	nsamples := 0
	for _, f := range fields[2:] {
		switch {
		case strings.HasPrefix(f, "t="):
			tName = f[len("t="):]
		case strings.HasPrefix(f, "twoN="):
			nName = f[len("twoN="):]
		case strings.HasPrefix(f, "samples="):
			k, err := strconv.Atoi(f[len("samples="):])
			if err != nil || k <= 0 {
				return fmt.Errorf("segment %s: bad sample count %q", name, f)
			}
			nsamples = k
		default:
			return fmt.Errorf("segment %s: unknown field %q", name, f)
		}
	}
	if tName == "" || nName == "" {
		return fmt.Errorf("segment %s: t= and twoN= are required", name)
	}
	tH, ok := p.ps.ByName(tName)
	if !ok {
		return fmt.Errorf("segment %s: %w: %s", name, params.ErrUnknownParam, tName)
	}
	nH, ok := p.ps.ByName(nName)
	if !ok {
		return fmt.Errorf("segment %s: %w: %s", name, params.ErrUnknownParam, nName)
	}
	id, err := p.net.AddSegment(name, nH, tH)
	if err != nil {
		return err
	}
	p.segs[name] = id
	if nsamples > 0 {
		if err := p.idx.AddSamples(name, nsamples); err != nil {
			return err
		}
		if err := p.net.AddSamples(id, nsamples); err != nil {
			return err
		}
	}
	return nil
}

// mix handles "mix child from native + m * introgressor".
func (p *parser) mix(fields []string) error {
	if len(fields) != 8 || fields[2] != "from" || fields[4] != "+" || fields[6] != "*" {
		return fmt.Errorf("mix: want \"mix child from native + m * introgressor\"")
	}
	child, ok := p.segs[fields[1]]
	if !ok {
		return fmt.Errorf("mix: unknown segment %s", fields[1])
	}
	native, ok := p.segs[fields[3]]
	if !ok {
		return fmt.Errorf("mix: unknown segment %s", fields[3])
	}
	mH, ok := p.ps.ByName(fields[5])
	if !ok {
		return fmt.Errorf("mix: %w: %s", params.ErrUnknownParam, fields[5])
	}
	if p.ps.Get(mH).Category != params.MixFrac {
		return fmt.Errorf("mix: parameter %s is not a mixFrac", fields[5])
	}
	introgressor, ok := p.segs[fields[7]]
	if !ok {
		return fmt.Errorf("mix: unknown segment %s", fields[7])
	}
	return p.net.Mix(child, mH, introgressor, native)
}

// derive handles "derive child from parent".
func (p *parser) derive(fields []string) error {
	if len(fields) != 4 || fields[2] != "from" {
		return fmt.Errorf("derive: want \"derive child from parent\"")
	}
	child, ok := p.segs[fields[1]]
	if !ok {
		return fmt.Errorf("derive: unknown segment %s", fields[1])
	}
	parent, ok := p.segs[fields[3]]
	if !ok {
		return fmt.Errorf("derive: unknown segment %s", fields[3])
	}
	return p.net.AddChild(parent, child)
}
