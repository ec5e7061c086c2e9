// Package codegen implements spec.md §4.C/§4.D (components E and F): it
// walks the parsed node tree and lowers it to Go source implementing
// RenderInto(w io.Writer) error, delegating whitespace decisions to
// package whitespace and inheritance wiring to package inherit.
package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zipreport/tmplc/parser"
	"github.com/zipreport/tmplc/resolver"
	"github.com/zipreport/tmplc/state"
	"github.com/zipreport/tmplc/tmplerr"
	"github.com/zipreport/tmplc/whitespace"
)

// unit compiles exactly one generated Go function body: RenderInto, one
// RenderTraitInto, or one RenderBlock_<name>Into. Each gets its own
// whitespace controller and scope root (spec.md §5: scoped resources are
// released on every exit path, which falls out naturally here since a
// unit's scope/controller never escape its own emission).
type unit struct {
	sb    strings.Builder
	indent int
	ws    *whitespace.Controller
	scope *scope

	loopCounters []string
	tempCounter  int

	st       *state.State
	resolve  *resolver.Resolver
	states   map[string]*state.State // canonical path -> state, for includes/extends lookups across the whole compile batch
	template string                  // current template's canonical path, for diagnostics
	fromDir  string                  // directory of the template currently being emitted, for relative includes
}

func newUnit(st *state.State, resolve *resolver.Resolver, states map[string]*state.State) *unit {
	return &unit{
		ws:       whitespace.New(),
		scope:    newScope(nil),
		st:       st,
		resolve:  resolve,
		states:   states,
		template: st.Input.CanonicalPath,
		fromDir:  dirOf(st.Input.CanonicalPath),
	}
}

func dirOf(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return ""
}

func (u *unit) line(format string, args ...interface{}) {
	u.sb.WriteString(strings.Repeat("\t", u.indent))
	fmt.Fprintf(&u.sb, format, args...)
	u.sb.WriteByte('\n')
}

func (u *unit) newTemp() string {
	u.tempCounter++
	return fmt.Sprintf("__tmp%d", u.tempCounter)
}

// boundary flushes the whitespace controller's decision at one tag
// position (spec.md §4.E).
func (u *unit) boundary(ws parser.WS) {
	if out := u.ws.Boundary(ws); out != "" {
		u.writeLiteral(out)
	}
}

func (u *unit) finishWS() {
	if out := u.ws.Finish(); out != "" {
		u.writeLiteral(out)
	}
}

// writeLiteral emits a compile-time-known string constant.
func (u *unit) writeLiteral(s string) {
	u.writeExpr(strconv.Quote(s))
}

// writeExpr emits a runtime string expression through the writer, with
// spec.md §7's write-error bubbling.
func (u *unit) writeExpr(goExpr string) {
	u.line("if _, err := io.WriteString(w, %s); err != nil {", goExpr)
	u.indent++
	u.line("return err")
	u.indent--
	u.line("}")
}

func (u *unit) fatalf(format string, args ...interface{}) error {
	return tmplerr.New(u.template, 0, 0, format, args...)
}

func (u *unit) pushLoop(counter string) { u.loopCounters = append(u.loopCounters, counter) }
func (u *unit) popLoop()                { u.loopCounters = u.loopCounters[:len(u.loopCounters)-1] }
func (u *unit) currentLoop() (string, bool) {
	if len(u.loopCounters) == 0 {
		return "", false
	}
	return u.loopCounters[len(u.loopCounters)-1], true
}

// exportedName is the host-language form of a template identifier used as
// a Go struct field: templates write lowerCamel, Go exports with an
// initial capital. This is the one naming choice the core spec leaves to
// implementers (spec.md §9 "generated-code leakage").
func exportedName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
