// Package tmplcrt is the small runtime support library generated code
// imports (SPEC_FULL.md §4.E): escaping, stringification, and the built-in
// filters that need more than one line of Go. It has no dependency on any
// other package in this module — generated code and tmplcrt are the only
// two things a compiled template's own package needs at runtime, mirroring
// how the teacher kept its filter implementations free of the parser/lexer.
package tmplcrt

import (
	"encoding/json"
	"fmt"
	"html"
	"reflect"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/xerrors"
)

// Safe marks a string as already safe to print verbatim: the |safe filter
// (spec.md §4.C) wraps a value in it to suppress auto-escaping.
type Safe string

// ToString renders any value the way an interpolation's default (non-safe)
// path expects, before an escape decision is applied.
func ToString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case Safe:
		return string(s)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

// Escape HTML-escapes a string and returns it as Safe. The expression
// visitor treats that result as wrapped and does not escape it again, so a
// second |escape or |e is a no-op (spec.md §8 testable property 2).
func Escape(s string) Safe {
	return Safe(html.EscapeString(s))
}

// SafeFilter wraps a value as already-escaped without transforming it — the
// |safe filter's entire job (spec.md §4.C).
func SafeFilter(v interface{}) Safe {
	return Safe(ToString(v))
}

// Lower and Upper are Unicode-correct case folds (SPEC_FULL.md §3), unlike
// strings.ToLower/ToUpper's simple byte-wise behavior for some scripts.
func Lower(v interface{}) string {
	return cases.Lower(language.Und).String(ToString(v))
}

func Upper(v interface{}) string {
	return cases.Upper(language.Und).String(ToString(v))
}

func Trim(v interface{}) string {
	return strings.TrimSpace(ToString(v))
}

// Iter reflects over v and returns a []interface{} the join filter can walk
// uniformly, regardless of the host slice's element type.
func Iter(v interface{}) []interface{} {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	default:
		return nil
	}
}

// Join stringifies every element of items and concatenates them with sep,
// defaulting to "" when no separator argument was given (spec.md §4.C).
func Join(items []interface{}, sep ...string) string {
	s := ""
	if len(sep) > 0 {
		s = sep[0]
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = ToString(it)
	}
	return strings.Join(parts, s)
}

// JSON is the one fallible built-in filter (SPEC_FULL.md §4.E): it is only
// ever emitted as the entire expression of an {{ }} tag so its error can be
// bubbled through RenderInto's own error return.
func JSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", xerrors.Errorf("json filter: %w", err)
	}
	return string(b), nil
}
