// Package state implements spec.md §4.D: a single fold over one template's
// node list that collects extends/block/macro directives and derives the
// synthesized trait name used by the inheritance linker (component H).
package state

import (
	"fmt"
	"strings"

	"github.com/zipreport/tmplc/input"
	"github.com/zipreport/tmplc/parser"
	"github.com/zipreport/tmplc/tmplerr"
)

// State is immutable after construction (spec.md §3).
type State struct {
	Input     input.TemplateInput
	Nodes     []parser.Node
	BlockDefs []*parser.BlockDef // ordered; pointers to copies of the top-level BlockDef nodes
	Macros    map[string]*parser.Macro
	TraitName string
	Derived   bool
	Extends   *parser.Extends
}

// Build walks nodes once. BlockDef/Extends/Macro are legal only at the top
// level; any nested occurrence is fatal (spec.md §3 invariant). At most one
// Extends is allowed. The path used for TraitFrom is the
// template's own canonical path, or — when it extends another template —
// the *parent's* canonical path, so parent and child trait names agree
// (spec.md §4.F closing sentence). The caller supplies parentCanonicalPath
// after resolving the Extends directive (nil when there is none).
func Build(in input.TemplateInput, nodes []parser.Node, parentCanonicalPath *string) (*State, error) {
	s := &State{
		Input:  in,
		Nodes:  nodes,
		Macros: make(map[string]*parser.Macro),
	}

	for _, n := range nodes {
		switch v := n.(type) {
		case parser.Extends:
			if s.Extends != nil {
				return nil, tmplerr.New(in.CanonicalPath, 0, 0, "duplicate extends directive")
			}
			ext := v
			s.Extends = &ext
			s.Derived = true
		case parser.BlockDef:
			bd := v
			s.BlockDefs = append(s.BlockDefs, &bd)
			if err := checkNoNestedDirectives(in.CanonicalPath, bd.Body); err != nil {
				return nil, err
			}
		case parser.Macro:
			m := v
			if _, dup := s.Macros[m.Name]; dup {
				return nil, tmplerr.New(in.CanonicalPath, 0, 0, "duplicate macro %q", m.Name)
			}
			s.Macros[m.Name] = &m
			if err := checkNoNestedDirectives(in.CanonicalPath, m.Body); err != nil {
				return nil, err
			}
		case parser.Cond:
			for _, arm := range v.Arms {
				if err := checkNoTopLevelDirectivesNested(in.CanonicalPath, arm.Body); err != nil {
					return nil, err
				}
			}
		case parser.Loop:
			if err := checkNoTopLevelDirectivesNested(in.CanonicalPath, v.Body); err != nil {
				return nil, err
			}
		}
	}

	tpath := in.CanonicalPath
	if parentCanonicalPath != nil {
		tpath = *parentCanonicalPath
	}
	s.TraitName = TraitFrom(tpath)
	return s, nil
}

// checkNoNestedDirectives rejects a nested BlockDef, Extends, or Macro
// anywhere inside body — top level only (spec.md §3 invariant).
func checkNoNestedDirectives(template string, body []parser.Node) error {
	for _, n := range body {
		switch v := n.(type) {
		case parser.BlockDef:
			return tmplerr.New(template, 0, 0, "nested block %q is not allowed", v.Name)
		case parser.Extends:
			return tmplerr.New(template, 0, 0, "nested extends is not allowed")
		case parser.Macro:
			return tmplerr.New(template, 0, 0, "nested macro %q is not allowed", v.Name)
		case parser.Cond:
			for _, arm := range v.Arms {
				if err := checkNoNestedDirectives(template, arm.Body); err != nil {
					return err
				}
			}
		case parser.Loop:
			if err := checkNoNestedDirectives(template, v.Body); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkNoTopLevelDirectivesNested is the same rule applied while walking
// down from the template's top level through if/for bodies (which are not
// "top level" themselves).
func checkNoTopLevelDirectivesNested(template string, body []parser.Node) error {
	return checkNoNestedDirectives(template, body)
}

// TraitFrom builds the deterministic trait name for a canonical template
// path: every non-alphanumeric byte is hex-escaped, prefixed with "Trait"
// (spec.md §3).
func TraitFrom(path string) string {
	var sb strings.Builder
	sb.WriteString("Trait")
	for i := 0; i < len(path); i++ {
		b := path[i]
		if (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') {
			sb.WriteByte(b)
			continue
		}
		fmt.Fprintf(&sb, "_%02x", b)
	}
	return sb.String()
}
