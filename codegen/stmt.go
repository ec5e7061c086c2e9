package codegen

import (
	"github.com/zipreport/tmplc/inherit"
	"github.com/zipreport/tmplc/input"
	"github.com/zipreport/tmplc/lexer"
	"github.com/zipreport/tmplc/parser"
	"github.com/zipreport/tmplc/state"
)

// emitNodes walks body in source order, driving the whitespace controller
// continuously across node boundaries (spec.md §4.E).
func (u *unit) emitNodes(body []parser.Node) error {
	for _, n := range body {
		if err := u.emitNode(n); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) emitNode(n parser.Node) error {
	switch v := n.(type) {
	case parser.Lit:
		if out := u.ws.Literal(v); out != "" {
			u.writeLiteral(out)
		}
		return nil

	case parser.Comment:
		// Comments are discarded entirely but still count as a whitespace
		// boundary (SPEC_FULL.md §5): an empty WS neither trims nor is
		// trimmed, matching the surrounding literals' own lws/rws handling.
		u.boundary(parser.WS{})
		return nil

	case parser.Expr:
		u.boundary(v.WS)
		return u.emitExprTag(v)

	case parser.Call:
		u.boundary(v.WS)
		return u.emitCall(v)

	case parser.LetDecl:
		u.boundary(v.WS)
		declareTarget(u.scope, v.Target)
		return nil

	case parser.Let:
		u.boundary(v.WS)
		return u.emitLet(v)

	case parser.Cond:
		return u.emitCond(v)

	case parser.Loop:
		return u.emitLoop(v)

	case parser.Extends:
		// Nothing to emit: extends only steers state.Build/compile.go's
		// wiring of the trait hierarchy (spec.md §4.F).
		return nil

	case parser.BlockDef:
		// Nothing emitted inline here either: top-level BlockDefs are
		// lowered to trait methods by compile.go via toBlockRefs, which
		// substitutes a Block call site for the walk body instead.
		return nil

	case parser.Block:
		u.boundary(v.WS)
		u.line("if err := impl.%s(w); err != nil {", inherit.TraitMethodName(v.Name))
		u.indent++
		u.line("return err")
		u.indent--
		u.line("}")
		u.boundary(v.EndWS)
		return nil

	case parser.Include:
		u.boundary(v.WS)
		return u.emitInclude(v)

	case parser.Macro:
		// Macro bodies are compiled lazily, only at their Call sites
		// (spec.md §4.D); the definition itself emits nothing.
		return nil

	default:
		return u.fatalf("unsupported node %T", n)
	}
}

func declareTarget(s *scope, t parser.Target) {
	switch v := t.(type) {
	case parser.NameTarget:
		s.declare(v.Ident)
	case parser.NamesTarget:
		for _, id := range v.Idents {
			s.declare(id)
		}
	}
}

func targetGoPattern(t parser.Target) string {
	switch v := t.(type) {
	case parser.NameTarget:
		return v.Ident
	case parser.NamesTarget:
		out := ""
		for i, id := range v.Idents {
			if i > 0 {
				out += ", "
			}
			out += id
		}
		return out
	default:
		return "_"
	}
}

// emitExprTag lowers a {{ expr }} tag. json is the one fallible filter
// (SPEC_FULL.md §4.E) so it gets its own error-checked temp binding instead
// of visitExpr's ordinary non-fallible form.
func (u *unit) emitExprTag(e parser.Expr) error {
	if f, ok := e.Expr.(parser.Filter); ok && f.Name == "json" {
		if len(f.Args) == 0 {
			return u.fatalf("|json requires a value to filter")
		}
		valueCode, _, err := u.visitExpr(f.Args[0])
		if err != nil {
			return err
		}
		tmp := u.newTemp()
		u.line("%s, err := tmplcrt.JSON(%s)", tmp, valueCode)
		u.line("if err != nil {")
		u.indent++
		u.line("return err")
		u.indent--
		u.line("}")
		u.writeExpr(tmp)
		return nil
	}

	code, wrapped, err := u.visitExpr(e.Expr)
	if err != nil {
		return err
	}
	switch {
	case wrapped:
		// Filters like |safe and |escape already return tmplcrt.Safe; only
		// an explicit string() conversion is needed to satisfy io.Writer.
		code = "string(" + code + ")"
	case u.st.Input.EscapeMode == input.EscapeHTML:
		code = "string(tmplcrt.Escape(tmplcrt.ToString(" + code + ")))"
	default:
		code = "tmplcrt.ToString(" + code + ")"
	}
	u.writeExpr(code)
	return nil
}

func (u *unit) emitLet(l parser.Let) error {
	code, _, err := u.visitExpr(l.Value)
	if err != nil {
		return err
	}
	u.line("%s := %s", targetGoPattern(l.Target), code)
	declareTarget(u.scope, l.Target)
	return nil
}

func (u *unit) emitCond(c parser.Cond) error {
	for i, arm := range c.Arms {
		u.boundary(arm.WS)
		switch {
		case arm.Expr == nil:
			u.line("} else {")
		case i == 0:
			code, _, err := u.visitExpr(arm.Expr)
			if err != nil {
				return err
			}
			u.line("if %s {", code)
		default:
			code, _, err := u.visitExpr(arm.Expr)
			if err != nil {
				return err
			}
			u.line("} else if %s {", code)
		}
		u.indent++
		u.scope.push()
		if err := u.emitNodes(arm.Body); err != nil {
			return err
		}
		u.scope.pop()
		u.indent--
	}
	u.line("}")
	u.boundary(c.EndWS)
	return nil
}

func (u *unit) emitLoop(l parser.Loop) error {
	u.boundary(l.WS)
	iterCode, _, err := u.visitExpr(l.Iter)
	if err != nil {
		return err
	}
	counter := u.newTemp()
	u.line("%s := 0", counter)
	u.line("for _, %s := range %s {", targetGoPattern(l.Target), iterCode)
	u.indent++
	u.pushLoop(counter)
	u.scope.push()
	declareTarget(u.scope, l.Target)
	if err := u.emitNodes(l.Body); err != nil {
		return err
	}
	u.scope.pop()
	u.popLoop()
	u.line("%s++", counter)
	u.indent--
	u.line("}")
	u.boundary(l.EndWS)
	return nil
}

func (u *unit) emitCall(c parser.Call) error {
	m, ok := u.st.Macros[c.MacroName]
	if !ok {
		return u.fatalf("call to undefined macro %q", c.MacroName)
	}
	if len(c.Args) != len(m.Params) {
		return u.fatalf("macro %q expects %d argument(s), got %d (macro default parameters are not supported)", c.MacroName, len(m.Params), len(c.Args))
	}

	argCode := make([]string, len(c.Args))
	for i, a := range c.Args {
		code, _, err := u.visitExpr(a)
		if err != nil {
			return err
		}
		argCode[i] = code
	}

	u.scope.push()
	for i, p := range m.Params {
		u.line("%s := %s", p, argCode[i])
		u.scope.declare(p)
	}
	u.boundary(m.WS)
	if err := u.emitNodes(m.Body); err != nil {
		return err
	}
	u.boundary(m.EndWS)
	u.scope.pop()
	return nil
}

// emitInclude splices an included template's node stream into the current
// unit. A fresh scope is pushed with outer set to the caller's current
// scope (read-through only, no leak-back, spec.md §8 testable property 5);
// the whitespace controller is NOT reset, so trimming stays continuous
// across the splice (DESIGN.md, component F).
func (u *unit) emitInclude(inc parser.Include) error {
	canonicalPath, src, err := u.resolve.Resolve(u.fromDir, inc.Path)
	if err != nil {
		return u.fatalf("include %q: %v", inc.Path, err)
	}

	toks, lerr := lexer.New(string(src)).Tokens()
	if lerr != nil {
		return u.fatalf("include %q: %v", inc.Path, lerr)
	}
	nodes, perr := parser.New(string(src), toks).Parse()
	if perr != nil {
		return u.fatalf("include %q: %v", inc.Path, perr)
	}

	includedInput := u.st.Input
	includedInput.CanonicalPath = canonicalPath
	includedInput.Source = src
	includedSt, serr := state.Build(includedInput, nodes, nil)
	if serr != nil {
		return u.fatalf("include %q: %v", inc.Path, serr)
	}
	if includedSt.Derived || len(includedSt.BlockDefs) > 0 || len(includedSt.Macros) > 0 {
		return u.fatalf("included template %q must not itself use extends, block, or macro", canonicalPath)
	}

	savedScope, savedTemplate, savedFromDir, savedSt := u.scope, u.template, u.fromDir, u.st
	u.scope = newScope(savedScope)
	u.template = canonicalPath
	u.fromDir = dirOf(canonicalPath)
	u.st = includedSt

	err = u.emitNodes(nodes)

	u.scope, u.template, u.fromDir, u.st = savedScope, savedTemplate, savedFromDir, savedSt
	return err
}
