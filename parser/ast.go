// Package parser turns a lexed template into the typed syntax tree defined
// in spec.md §3. It is a recursive-descent parser over the lexer's token
// stream; failure is always fatal (spec.md §4.A, §7) — there is no error
// recovery because templates are build artifacts, not user input.
package parser

import "github.com/zipreport/tmplc/lexer"

// Expression is spec.md §3's tagged variant. Each concrete type below
// corresponds to one named alternative.
type Expression interface {
	expressionNode()
}

type NumLit struct{ Text string }
type StrLit struct{ Text string }
type Var struct{ Name string }
type Attr struct {
	Inner Expression
	Name  string
}
type MethodCall struct {
	Inner Expression
	Name  string
	Args  []Expression
}
type Filter struct {
	Name string
	Args []Expression // Args[0] is the filtered value
}
type BinOp struct {
	Op          string
	Left, Right Expression
}
type Group struct{ Inner Expression }

func (NumLit) expressionNode()     {}
func (StrLit) expressionNode()     {}
func (Var) expressionNode()        {}
func (Attr) expressionNode()       {}
func (MethodCall) expressionNode() {}
func (Filter) expressionNode()     {}
func (BinOp) expressionNode()      {}
func (Group) expressionNode()      {}

// Target is a `let` binding pattern.
type Target interface {
	targetNode()
}

type NameTarget struct{ Ident string }
type NamesTarget struct{ Idents []string } // tuple destructure

func (NameTarget) targetNode()  {}
func (NamesTarget) targetNode() {}

// WS is the pair of trim-marker flags derived from '-' sigils on a tag.
type WS struct {
	Left, Right bool
}

// Node is spec.md §3's tagged variant over template tree nodes.
type Node interface {
	nodeNode()
}

// Lit holds one contiguous literal chunk already split into its leading
// whitespace run, interior body, and trailing whitespace run (spec.md
// §4.A "literal splitting"). A Lit is only ever constructed by the parser
// when at least one of the three is non-empty; the whitespace controller
// may still later discard lws/rws entirely (spec.md §3 invariant).
type Lit struct {
	LWS, Body, RWS string
}

type Comment struct{}

type Expr struct {
	WS   WS
	Expr Expression
}

type Call struct {
	WS        WS
	MacroName string
	Args      []Expression
}

type LetDecl struct {
	WS     WS
	Target Target
}

type Let struct {
	WS     WS
	Target Target
	Value  Expression
}

// CondArm is one arm of an if/elif/else chain. Expr is nil for a trailing
// `else`. The first arm's Expr is always non-nil (spec.md §3).
type CondArm struct {
	WS   WS
	Expr Expression
	Body []Node
}

type Cond struct {
	Arms  []CondArm
	EndWS WS
}

type Loop struct {
	WS     WS
	Target Target
	Iter   Expression
	Body   []Node
	EndWS  WS
}

// Extends names a parent template; Path must be a StrLit (spec.md §3).
type Extends struct {
	Path Expression
}

type BlockDef struct {
	WS    WS
	Name  string
	Body  []Node
	EndWS WS
}

// Block is a call-site reference to an inherited block (spec.md §3).
type Block struct {
	WS    WS
	Name  string
	EndWS WS
}

type Include struct {
	WS   WS
	Path string
}

type Macro struct {
	WS     WS
	Name   string
	Params []string
	Body   []Node
	EndWS  WS
}

func (Lit) nodeNode()      {}
func (Comment) nodeNode()  {}
func (Expr) nodeNode()     {}
func (Call) nodeNode()     {}
func (LetDecl) nodeNode()  {}
func (Let) nodeNode()      {}
func (Cond) nodeNode()     {}
func (Loop) nodeNode()     {}
func (Extends) nodeNode()  {}
func (BlockDef) nodeNode() {}
func (Block) nodeNode()    {}
func (Include) nodeNode()  {}
func (Macro) nodeNode()    {}

// wsFromTokens derives a WS pair from the opening and closing delimiter
// tokens of one tag.
func wsFromTokens(open, close lexer.Token) WS {
	return WS{Left: open.TrimLeft, Right: close.TrimRight}
}
