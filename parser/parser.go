package parser

import (
	"strings"

	"golang.org/x/xerrors"

	"github.com/zipreport/tmplc/lexer"
)

// Parser consumes a flat token stream and produces the node list for one
// template. Any mismatch on the remaining input is fatal (spec.md §4.A).
type Parser struct {
	toks []lexer.Token
	pos  int
	src  string
}

func New(src string, toks []lexer.Token) *Parser {
	return &Parser{toks: toks, src: src}
}

// Parse consumes tokens until TokenEOF and returns the top-level node list.
// Any unparsed tail is reported with the offending token's position.
func (p *Parser) Parse() ([]Node, error) {
	nodes, err := p.parseNodes(nil)
	if err != nil {
		return nil, err
	}
	if !p.at(lexer.TokenEOF) {
		t := p.cur()
		return nil, p.errorf("unparsed input remaining starting at %q (line %d, column %d)", t.Value, t.Line, t.Column)
	}
	return nodes, nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return xerrors.Errorf("template parse error: "+format, args...)
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) at(t lexer.TokenType) bool { return p.cur().Type == t }

func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(t lexer.TokenType) (lexer.Token, error) {
	if !p.at(t) {
		got := p.cur()
		return lexer.Token{}, p.errorf("expected %s, got %s %q at line %d, column %d", t, got.Type, got.Value, got.Line, got.Column)
	}
	return p.advance(), nil
}

// parseNodes parses nodes until EOF or, when endKeywords is non-nil, until a
// block tag whose keyword is in endKeywords: the sibling/closing keywords of
// control constructs that share a body (elif/else/endif, endfor, endblock,
// endmacro). endKeywords is nil for the outermost (template-level)
// call, meaning "consume to EOF".
func (p *Parser) parseNodes(endKeywords map[string]bool) ([]Node, error) {
	var nodes []Node
	for {
		if p.at(lexer.TokenEOF) {
			return nodes, nil
		}
		if p.at(lexer.TokenBlockStart) && endKeywords != nil {
			kw, ok := p.peekBlockKeyword()
			if ok && endKeywords[kw] {
				return nodes, nil
			}
		}
		n, err := p.parseOne()
		if err != nil {
			return nil, err
		}
		if n != nil {
			nodes = append(nodes, n)
		}
	}
}

// peekBlockKeyword looks at the identifier immediately after an unconsumed
// TokenBlockStart without advancing the parser.
func (p *Parser) peekBlockKeyword() (string, bool) {
	if p.pos+1 >= len(p.toks) {
		return "", false
	}
	next := p.toks[p.pos+1]
	if next.Type != lexer.TokenIdent {
		return "", false
	}
	return next.Value, true
}

func (p *Parser) parseOne() (Node, error) {
	switch p.cur().Type {
	case lexer.TokenText:
		return p.parseLit()
	case lexer.TokenComment:
		p.advance()
		return Comment{}, nil
	case lexer.TokenVarStart:
		return p.parseExprTag()
	case lexer.TokenBlockStart:
		return p.parseBlockTag()
	default:
		t := p.cur()
		return nil, p.errorf("unexpected token %s %q at line %d, column %d", t.Type, t.Value, t.Line, t.Column)
	}
}

// parseLit splits one raw literal chunk into (lws, body, rws) by locating
// the first and last non-whitespace byte, per spec.md §4.A.
func (p *Parser) parseLit() (Node, error) {
	text := p.advance().Value
	first := strings.IndexFunc(text, func(r rune) bool { return !isWSRune(r) })
	if first < 0 {
		return Lit{LWS: text}, nil
	}
	last := strings.LastIndexFunc(text, func(r rune) bool { return !isWSRune(r) })
	return Lit{
		LWS:  text[:first],
		Body: text[first : last+1],
		RWS:  text[last+1:],
	}, nil
}

func isWSRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

func (p *Parser) parseExprTag() (Node, error) {
	open, err := p.expect(lexer.TokenVarStart)
	if err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	close, err := p.expect(lexer.TokenVarEnd)
	if err != nil {
		return nil, err
	}
	return Expr{WS: wsFromTokens(open, close), Expr: expr}, nil
}

func (p *Parser) parseBlockTag() (Node, error) {
	open, err := p.expect(lexer.TokenBlockStart)
	if err != nil {
		return nil, err
	}
	kwTok, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	switch kwTok.Value {
	case "if":
		return p.parseCond(open)
	case "for":
		return p.parseLoop(open)
	case "let":
		return p.parseLet(open)
	case "extends":
		return p.parseExtends(open)
	case "block":
		return p.parseBlockDef(open)
	case "include":
		return p.parseInclude(open)
	case "macro":
		return p.parseMacro(open)
	case "call":
		return p.parseCall(open)
	default:
		return nil, p.errorf("unknown tag %q at line %d, column %d", kwTok.Value, kwTok.Line, kwTok.Column)
	}
}

func (p *Parser) parseCond(open lexer.Token) (Node, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	close, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	var arms []CondArm
	arms = append(arms, CondArm{WS: wsFromTokens(open, close), Expr: expr})

	for {
		body, err := p.parseNodes(map[string]bool{"elif": true, "else": true, "endif": true})
		if err != nil {
			return nil, err
		}
		arms[len(arms)-1].Body = body

		armOpen, err := p.expect(lexer.TokenBlockStart)
		if err != nil {
			return nil, err
		}
		kw, err := p.expect(lexer.TokenIdent)
		if err != nil {
			return nil, err
		}
		switch kw.Value {
		case "elif":
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			armClose, err := p.expect(lexer.TokenBlockEnd)
			if err != nil {
				return nil, err
			}
			arms = append(arms, CondArm{WS: wsFromTokens(armOpen, armClose), Expr: e})
		case "else":
			armClose, err := p.expect(lexer.TokenBlockEnd)
			if err != nil {
				return nil, err
			}
			arms = append(arms, CondArm{WS: wsFromTokens(armOpen, armClose), Expr: nil})
		case "endif":
			endClose, err := p.expect(lexer.TokenBlockEnd)
			if err != nil {
				return nil, err
			}
			return Cond{Arms: arms, EndWS: wsFromTokens(armOpen, endClose)}, nil
		default:
			return nil, p.errorf("expected elif/else/endif, got %q", kw.Value)
		}
	}
}

func (p *Parser) parseLoop(open lexer.Token) (Node, error) {
	target, err := p.parseTarget()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectIdent("in"); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	close, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	body, err := p.parseNodes(map[string]bool{"endfor": true})
	if err != nil {
		return nil, err
	}
	endOpen, err := p.expect(lexer.TokenBlockStart)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectIdent("endfor"); err != nil {
		return nil, err
	}
	endClose, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	return Loop{
		WS:     wsFromTokens(open, close),
		Target: target,
		Iter:   iter,
		Body:   body,
		EndWS:  wsFromTokens(endOpen, endClose),
	}, nil
}

func (p *Parser) expectIdent(word string) (lexer.Token, error) {
	t, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return t, err
	}
	if t.Value != word {
		return t, p.errorf("expected %q, got %q at line %d, column %d", word, t.Value, t.Line, t.Column)
	}
	return t, nil
}

// parseTarget parses either `ident` or `(a, b, ...)`.
func (p *Parser) parseTarget() (Target, error) {
	if p.at(lexer.TokenLParen) {
		p.advance()
		var idents []string
		for {
			id, err := p.expect(lexer.TokenIdent)
			if err != nil {
				return nil, err
			}
			idents = append(idents, id.Value)
			if p.at(lexer.TokenComma) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return NamesTarget{Idents: idents}, nil
	}
	id, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	return NameTarget{Ident: id.Value}, nil
}

func (p *Parser) parseLet(open lexer.Token) (Node, error) {
	target, err := p.parseTarget()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.TokenAssign) {
		p.advance()
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		close, err := p.expect(lexer.TokenBlockEnd)
		if err != nil {
			return nil, err
		}
		return Let{WS: wsFromTokens(open, close), Target: target, Value: val}, nil
	}
	close, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	if _, ok := target.(NamesTarget); ok {
		return nil, p.errorf("tuple target not allowed in a bare let-declaration")
	}
	return LetDecl{WS: wsFromTokens(open, close), Target: target}, nil
}

func (p *Parser) parseExtends(open lexer.Token) (Node, error) {
	path, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, ok := path.(StrLit); !ok {
		return nil, p.errorf("extends path must be a string literal")
	}
	if _, err := p.expect(lexer.TokenBlockEnd); err != nil {
		return nil, err
	}
	return Extends{Path: path}, nil
}

func (p *Parser) parseBlockDef(open lexer.Token) (Node, error) {
	name, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	close, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	body, err := p.parseNodes(map[string]bool{"endblock": true})
	if err != nil {
		return nil, err
	}
	endOpen, err := p.expect(lexer.TokenBlockStart)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectIdent("endblock"); err != nil {
		return nil, err
	}
	// optional trailing name repeat, e.g. {% endblock name %}
	if p.at(lexer.TokenIdent) {
		p.advance()
	}
	endClose, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	return BlockDef{WS: wsFromTokens(open, close), Name: name.Value, Body: body, EndWS: wsFromTokens(endOpen, endClose)}, nil
}

func (p *Parser) parseInclude(open lexer.Token) (Node, error) {
	path, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	lit, ok := path.(StrLit)
	if !ok {
		return nil, p.errorf("include path must be a string literal")
	}
	close, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	return Include{WS: wsFromTokens(open, close), Path: lit.Text}, nil
}

func (p *Parser) parseMacro(open lexer.Token) (Node, error) {
	name, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	var params []string
	for !p.at(lexer.TokenRParen) {
		id, err := p.expect(lexer.TokenIdent)
		if err != nil {
			return nil, err
		}
		params = append(params, id.Value)
		if p.at(lexer.TokenComma) {
			p.advance()
		}
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	close, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	body, err := p.parseNodes(map[string]bool{"endmacro": true})
	if err != nil {
		return nil, err
	}
	endOpen, err := p.expect(lexer.TokenBlockStart)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectIdent("endmacro"); err != nil {
		return nil, err
	}
	endClose, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	return Macro{WS: wsFromTokens(open, close), Name: name.Value, Params: params, Body: body, EndWS: wsFromTokens(endOpen, endClose)}, nil
}

func (p *Parser) parseCall(open lexer.Token) (Node, error) {
	name, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	var args []Expression
	if p.at(lexer.TokenLParen) {
		args, err = p.parseArgs()
		if err != nil {
			return nil, err
		}
	}
	close, err := p.expect(lexer.TokenBlockEnd)
	if err != nil {
		return nil, err
	}
	return Call{WS: wsFromTokens(open, close), MacroName: name.Value, Args: args}, nil
}

func (p *Parser) parseArgs() ([]Expression, error) {
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	var args []Expression
	for !p.at(lexer.TokenRParen) {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.at(lexer.TokenComma) {
			p.advance()
		}
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	return args, nil
}

// --- expression grammar: spec.md §4.A precedence table, one right operand
// per layer. ---

func (p *Parser) parseExpr() (Expression, error)      { return p.parseOr() }

func (p *Parser) parseOr() (Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.TokenOpOr) {
		op := p.advance().Value
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		return BinOp{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expression, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.TokenOpAnd) {
		op := p.advance().Value
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		return BinOp{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseCmp() (Expression, error) {
	left, err := p.parseBOr()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.TokenOpCmp) {
		op := p.advance().Value
		right, err := p.parseBOr()
		if err != nil {
			return nil, err
		}
		return BinOp{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

// parseBOr handles the bitwise-or layer. Per spec.md §4.C/§9, '|' is only a
// bitwise-or operator here; a '|' immediately following an expr_attr result
// is consumed by parseFilters one layer down, so by the time control
// reaches here a bare TokenPipe really is bitwise-or (expr_filter already
// absorbed every filter-shaped pipe before returning).
func (p *Parser) parseBOr() (Expression, error) {
	left, err := p.parseBXor()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.TokenPipe) {
		op := p.advance().Value
		right, err := p.parseBXor()
		if err != nil {
			return nil, err
		}
		return BinOp{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseBXor() (Expression, error) {
	left, err := p.parseBAnd()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.TokenOpBXor) {
		op := p.advance().Value
		right, err := p.parseBAnd()
		if err != nil {
			return nil, err
		}
		return BinOp{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseBAnd() (Expression, error) {
	left, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.TokenOpBAnd) {
		op := p.advance().Value
		right, err := p.parseShift()
		if err != nil {
			return nil, err
		}
		return BinOp{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseShift() (Expression, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.TokenOpShift) {
		op := p.advance().Value
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return BinOp{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseAdd() (Expression, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.TokenOpAdd) {
		op := p.advance().Value
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		return BinOp{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseMul() (Expression, error) {
	left, err := p.parseFilters()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.TokenOpMul) {
		op := p.advance().Value
		right, err := p.parseFilters()
		if err != nil {
			return nil, err
		}
		return BinOp{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

// parseFilters implements expr_filter: zero or more `| name(args)` suffixes
// on an expr_attr. This is the layer that claims '|' before parseBOr ever
// sees it, resolving the spec.md §9 pipe ambiguity.
func (p *Parser) parseFilters() (Expression, error) {
	expr, err := p.parseAttr()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.TokenPipe) {
		p.advance()
		name, err := p.expect(lexer.TokenIdent)
		if err != nil {
			return nil, err
		}
		var args []Expression
		if p.at(lexer.TokenLParen) {
			args, err = p.parseArgs()
			if err != nil {
				return nil, err
			}
		}
		expr = Filter{Name: name.Value, Args: append([]Expression{expr}, args...)}
	}
	return expr, nil
}

// parseAttr implements expr_attr: a chain of `.ident` or `.ident(args)`.
func (p *Parser) parseAttr() (Expression, error) {
	expr, err := p.parseSingle()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.TokenDot) {
		p.advance()
		name, err := p.expect(lexer.TokenIdent)
		if err != nil {
			return nil, err
		}
		if p.at(lexer.TokenLParen) {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			expr = MethodCall{Inner: expr, Name: name.Value, Args: args}
			continue
		}
		expr = Attr{Inner: expr, Name: name.Value}
	}
	return expr, nil
}

func (p *Parser) parseSingle() (Expression, error) {
	t := p.cur()
	switch t.Type {
	case lexer.TokenNumber:
		p.advance()
		return NumLit{Text: t.Value}, nil
	case lexer.TokenString:
		p.advance()
		return StrLit{Text: t.Value}, nil
	case lexer.TokenIdent:
		p.advance()
		return Var{Name: t.Value}, nil
	case lexer.TokenLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return Group{Inner: inner}, nil
	default:
		return nil, p.errorf("unexpected token %s %q at line %d, column %d in expression", t.Type, t.Value, t.Line, t.Column)
	}
}
