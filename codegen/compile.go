// Package codegen's compile.go is component G/H's top-level wiring: it
// drives components A-F over a whole manifest batch (SPEC_FULL.md §4.C) and
// assembles the component-H inheritance items described in inherit.go.
package codegen

import (
	"strings"

	"github.com/zipreport/tmplc/inherit"
	"github.com/zipreport/tmplc/input"
	"github.com/zipreport/tmplc/lexer"
	"github.com/zipreport/tmplc/parser"
	"github.com/zipreport/tmplc/resolver"
	"github.com/zipreport/tmplc/state"
	"github.com/zipreport/tmplc/tmplerr"
)

// Target is one manifest entry ready for compilation: the assembled
// TemplateInput plus the Go struct name its generated methods attach to
// (filled in by cmd/tmplc from the manifest entry's key).
type Target struct {
	Input    input.TemplateInput
	HostType string
}

// Result is one target's generated Go source.
type Result struct {
	HostType string
	Source   string
}

type batch struct {
	states     map[string]*state.State
	nodes      map[string][]parser.Node
	hostTypes  map[string]string
	parentPath map[string]string // child canonical path -> parent canonical path
}

// Compile implements components A-H end to end for a whole manifest batch:
// every target is lexed and parsed independently, then cross-referenced
// against the whole batch so a child's extends target need only resolve
// once, anywhere in the set, for the trait wiring to line up (spec.md §4.F).
func Compile(resolve *resolver.Resolver, targets []Target) ([]Result, error) {
	b := &batch{
		states:     make(map[string]*state.State, len(targets)),
		nodes:      make(map[string][]parser.Node, len(targets)),
		hostTypes:  make(map[string]string, len(targets)),
		parentPath: make(map[string]string, len(targets)),
	}

	for _, t := range targets {
		nodes, err := lexAndParse(t.Input.CanonicalPath, string(t.Input.Source))
		if err != nil {
			return nil, err
		}

		var parentCanonical *string
		if ext := findExtends(nodes); ext != nil {
			lit, ok := ext.Path.(parser.StrLit)
			if !ok {
				return nil, tmplerr.New(t.Input.CanonicalPath, 0, 0, "extends path must be a string literal")
			}
			canonical, _, rerr := resolve.Resolve(dirOf(t.Input.CanonicalPath), lit.Text)
			if rerr != nil {
				return nil, tmplerr.Wrap(t.Input.CanonicalPath, 0, 0, rerr, "extends %q", lit.Text)
			}
			parentCanonical = &canonical
			b.parentPath[t.Input.CanonicalPath] = canonical
		}

		st, err := state.Build(t.Input, nodes, parentCanonical)
		if err != nil {
			return nil, err
		}
		b.states[t.Input.CanonicalPath] = st
		b.nodes[t.Input.CanonicalPath] = nodes
		b.hostTypes[t.Input.CanonicalPath] = t.HostType
	}

	results := make([]Result, 0, len(targets))
	for _, t := range targets {
		src, err := b.compileOne(resolve, t.Input.CanonicalPath)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{HostType: t.HostType, Source: src})
	}
	return results, nil
}

func lexAndParse(canonicalPath, src string) ([]parser.Node, error) {
	toks, err := lexer.New(src).Tokens()
	if err != nil {
		return nil, tmplerr.Wrap(canonicalPath, 0, 0, err, "lex failed")
	}
	nodes, err := parser.New(src, toks).Parse()
	if err != nil {
		return nil, tmplerr.Wrap(canonicalPath, 0, 0, err, "parse failed")
	}
	return nodes, nil
}

func findExtends(nodes []parser.Node) *parser.Extends {
	for _, n := range nodes {
		if e, ok := n.(parser.Extends); ok {
			return &e
		}
	}
	return nil
}

// toBlockRefs substitutes every top-level BlockDef with a Block call-site
// reference, for use only when assembling the shared trait-walk body
// (spec.md §4.F item 3): the walk must dispatch through impl, not inline
// the definition's own default body.
func toBlockRefs(nodes []parser.Node) []parser.Node {
	out := make([]parser.Node, len(nodes))
	for i, n := range nodes {
		if bd, ok := n.(parser.BlockDef); ok {
			out[i] = parser.Block{WS: bd.WS, Name: bd.Name, EndWS: bd.EndWS}
			continue
		}
		out[i] = n
	}
	return out
}

func (b *batch) compileOne(resolve *resolver.Resolver, path string) (string, error) {
	st := b.states[path]
	nodes := b.nodes[path]
	hostType := b.hostTypes[path]

	if len(st.BlockDefs) == 0 && !st.Derived {
		u := newUnit(st, resolve, b.states)
		u.indent = 1
		if err := u.emitNodes(nodes); err != nil {
			return "", err
		}
		u.finishWS()
		return inherit.EmitTemplateRoutine("self", hostType, "", "", false, false, u.sb.String()), nil
	}

	traitName := st.TraitName

	blocks := make([]inherit.Block, 0, len(st.BlockDefs))
	for _, bd := range st.BlockDefs {
		bu := newUnit(st, resolve, b.states)
		bu.indent = 1
		if err := bu.emitNodes(bd.Body); err != nil {
			return "", err
		}
		bu.finishWS()
		blocks = append(blocks, inherit.Block{Name: bd.Name, Body: bu.sb.String()})
	}

	walkU := newUnit(st, resolve, b.states)
	walkU.indent = 1
	if err := walkU.emitNodes(toBlockRefs(nodes)); err != nil {
		return "", err
	}
	walkU.finishWS()

	var sb strings.Builder
	if !st.Derived {
		sb.WriteString(inherit.EmitTrait(traitName, blocks))
		sb.WriteString("\n")
	}
	sb.WriteString(inherit.EmitTraitImpl("self", hostType, traitName, blocks, walkU.sb.String()))
	sb.WriteString("\n")

	if st.Derived {
		parentPath, ok := b.parentPath[path]
		if !ok {
			return "", tmplerr.New(path, 0, 0, "internal: derived template missing resolved parent path")
		}
		parentHostType, ok := b.hostTypes[parentPath]
		if !ok {
			return "", tmplerr.New(path, 0, 0, "extends target %q was not found in this compile batch", parentPath)
		}
		// A parent block the child does not override forwards to the parent's
		// default body, so the child still implements the whole trait.
		for _, pbd := range b.states[parentPath].BlockDefs {
			overridden := false
			for _, cb := range blocks {
				if cb.Name == pbd.Name {
					overridden = true
				}
			}
			if !overridden {
				m := inherit.TraitMethodName(pbd.Name)
				sb.WriteString("func (self *" + hostType + ") " + m + "(w io.Writer) error {\n\treturn self.Parent." + m + "(w)\n}\n\n")
			}
		}
		sb.WriteString(inherit.EmitParentBridge("self", hostType, parentHostType, traitName))
		sb.WriteString("\n")
	}

	sb.WriteString(inherit.EmitTemplateRoutine("self", hostType, traitName, "", st.Derived, true, ""))
	return sb.String(), nil
}
