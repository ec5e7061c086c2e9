package codegen

import (
	"strconv"
	"strings"

	"github.com/zipreport/tmplc/parser"
)

// builtinFilters is the enumerated set from spec.md §6. safeFilters return
// Wrapped; everything else (built-in or user) returns Unwrapped.
var builtinFilters = map[string]bool{
	"safe": true, "escape": true, "e": true,
	"lower": true, "lowercase": true, "upper": true, "uppercase": true,
	"trim": true, "join": true, "format": true, "json": true,
}

var safeFilters = map[string]bool{"safe": true, "escape": true, "e": true, "json": true}

// visitExpr lowers one Expression to a Go expression string, returning
// whether the result is already safe to display (spec.md §4.C).
func (u *unit) visitExpr(e parser.Expression) (code string, wrapped bool, err error) {
	switch v := e.(type) {
	case parser.NumLit:
		return v.Text, false, nil

	case parser.StrLit:
		return strconv.Quote(v.Text), false, nil

	case parser.Var:
		if u.scope.has(v.Name) {
			return v.Name, false, nil
		}
		if v.Name == "self" {
			return "self", false, nil
		}
		return "self." + exportedName(v.Name), false, nil

	case parser.Attr:
		if loopVar, ok := v.Inner.(parser.Var); ok && loopVar.Name == "loop" {
			counter, has := u.currentLoop()
			if !has {
				return "", false, u.fatalf("loop.%s used outside of a {%% for %%} body", v.Name)
			}
			switch v.Name {
			case "index0":
				return counter, false, nil
			case "index":
				return "(" + counter + " + 1)", false, nil
			default:
				return "", false, u.fatalf("unknown loop attribute %q (only loop.index0 and loop.index are supported)", v.Name)
			}
		}
		inner, _, err := u.visitExpr(v.Inner)
		if err != nil {
			return "", false, err
		}
		return inner + "." + exportedName(v.Name), false, nil

	case parser.MethodCall:
		inner, _, err := u.visitExpr(v.Inner)
		if err != nil {
			return "", false, err
		}
		args, err := u.visitArgs(v.Args)
		if err != nil {
			return "", false, err
		}
		return inner + "." + exportedName(v.Name) + "(" + strings.Join(args, ", ") + ")", false, nil

	case parser.BinOp:
		left, _, err := u.visitExpr(v.Left)
		if err != nil {
			return "", false, err
		}
		right, _, err := u.visitExpr(v.Right)
		if err != nil {
			return "", false, err
		}
		return "(" + left + " " + v.Op + " " + right + ")", false, nil

	case parser.Group:
		inner, wrapped, err := u.visitExpr(v.Inner)
		if err != nil {
			return "", false, err
		}
		return "(" + inner + ")", wrapped, nil

	case parser.Filter:
		return u.visitFilter(v)

	default:
		return "", false, u.fatalf("unsupported expression node %T", e)
	}
}

func (u *unit) visitArgs(args []parser.Expression) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		code, _, err := u.visitExpr(a)
		if err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out, nil
}

// visitFilter implements spec.md §4.C's filter rules. json is handled
// specially by the statement emitter (it is the only fallible filter);
// visitFilter rejects it when nested anywhere but the full expression of
// an {{ }} tag, a documented scope limit (SPEC_FULL.md §4.E).
func (u *unit) visitFilter(f parser.Filter) (string, bool, error) {
	if len(f.Args) == 0 {
		return "", false, u.fatalf("filter %q requires a value to filter", f.Name)
	}
	valueCode, valueWrapped, err := u.visitExpr(f.Args[0])
	if err != nil {
		return "", false, err
	}
	restArgs, err := u.visitArgs(f.Args[1:])
	if err != nil {
		return "", false, err
	}

	switch f.Name {
	case "format":
		lit, ok := f.Args[0].(parser.StrLit)
		if !ok {
			return "", false, u.fatalf("the first argument to |format must be a string literal")
		}
		args := append([]string{strconv.Quote(lit.Text)}, restArgs...)
		return "fmt.Sprintf(" + strings.Join(args, ", ") + ")", false, nil

	case "join":
		args := append([]string{valueCode}, restArgs...)
		return "tmplcrt.Join(tmplcrt.Iter(" + args[0] + ")" + joinRest(args[1:]) + ")", false, nil

	case "json":
		return "", false, u.fatalf("|json may only be used as the entire expression of a {{ }} tag")

	case "safe":
		return "tmplcrt.SafeFilter(" + valueCode + ")", true, nil
	case "escape", "e":
		if valueWrapped {
			return valueCode, true, nil
		}
		return "tmplcrt.Escape(tmplcrt.ToString(" + valueCode + "))", true, nil
	case "lower", "lowercase":
		return "tmplcrt.Lower(" + valueCode + ")", false, nil
	case "upper", "uppercase":
		return "tmplcrt.Upper(" + valueCode + ")", false, nil
	case "trim":
		return "tmplcrt.Trim(" + valueCode + ")", false, nil

	default:
		args := append([]string{valueCode}, restArgs...)
		return "tmplcfilters." + exportedName(f.Name) + "(" + strings.Join(args, ", ") + ")", false, nil
	}
}

func joinRest(rest []string) string {
	if len(rest) == 0 {
		return ""
	}
	return ", " + strings.Join(rest, ", ")
}
