// Package whitespace implements spec.md §4.E: a two-literal sliding window
// over the node stream that applies '-' trim markers. It is deliberately
// small and stateful — the statement emitter (component F) drives it by
// calling Literal at every Lit node and Boundary at every tag boundary, in
// source order, including across included-template splices (DESIGN.md,
// component F) so trimming is continuous through an inlined include.
package whitespace

import (
	"strings"

	"github.com/zipreport/tmplc/parser"
)

// Controller holds the single pending unit of whitespace the spec allows.
type Controller struct {
	pending    string
	pendingSet bool
	skipNextLWS bool
}

func New() *Controller { return &Controller{} }

// Literal processes one Lit node: emits lws unless the preceding boundary
// requested right-trim, always emits Body, and buffers RWS as the new
// pending unit for the next Boundary call to resolve.
func (c *Controller) Literal(lit parser.Lit) string {
	var sb strings.Builder
	if !c.skipNextLWS {
		sb.WriteString(lit.LWS)
	}
	c.skipNextLWS = false
	sb.WriteString(lit.Body)

	if c.pendingSet {
		panic("whitespace: attempted to buffer a second pending unit of whitespace")
	}
	c.pending = lit.RWS
	c.pendingSet = true
	return sb.String()
}

// Boundary processes one tag's WS pair: the flush phase resolves whatever
// whitespace is pending from the literal just before this tag (emit it
// unless ws.Left requests a trim), and the prepare phase arms skipNextLWS
// from ws.Right so the *next* literal's lws is discarded if requested.
func (c *Controller) Boundary(ws parser.WS) string {
	var flushed string
	if c.pendingSet {
		if !ws.Left {
			flushed = c.pending
		}
		c.pending = ""
		c.pendingSet = false
	}
	c.skipNextLWS = ws.Right
	return flushed
}

// Finish flushes any trailing pending whitespace at the end of a node
// stream: nothing follows to request a trim, so it is always emitted,
// preserving spec.md §8 property 1 (whitespace preservation by default).
func (c *Controller) Finish() string {
	if !c.pendingSet {
		return ""
	}
	out := c.pending
	c.pending = ""
	c.pendingSet = false
	return out
}
