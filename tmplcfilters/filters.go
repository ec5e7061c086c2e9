// Package tmplcfilters is where a host project defines filters beyond the
// small built-in set tmplcrt carries (SPEC_FULL.md §4.E): a template using
// `|myfilter` lowers to a call `tmplcfilters.Myfilter(...)`, and tmplc never
// validates that the call resolves — that is left to the Go compiler, same
// as any other unresolved identifier in generated code.
package tmplcfilters

import "fmt"

// Truncate is a sample user filter: the first n runes of s, as-is.
func Truncate(v interface{}, n int) string {
	s := toString(v)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Pluralize appends suffix to word unless count == 1.
func Pluralize(word string, count int, suffix string) string {
	if count == 1 {
		return word
	}
	return word + suffix
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
