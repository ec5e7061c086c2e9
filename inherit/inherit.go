// Package inherit implements spec.md §4.F: given a non-empty set of block
// definitions, emit the four host-language items that wire template
// inheritance through a synthesized trait. It only assembles Go source
// text from already-generated block bodies; it has no knowledge of
// expressions or statements (that stays in codegen, which calls into this
// package, never the other way, to avoid an import cycle: codegen needs
// inherit's templating, inherit never needs codegen's visitor).
package inherit

import (
	"fmt"
	"strings"
)

// Block is one block definition's generated body, already indented Go
// statements that call w.Write/writer methods — see codegen/stmt.go.
type Block struct {
	Name string
	Body string // statements implementing the block's default rendering
}

// TraitMethodName is the identifier naming block N's render method. The
// core spec leaves this name opaque (spec.md §9); this is the one
// implementers choose.
func TraitMethodName(block string) string {
	return "RenderBlock_" + block + "Into"
}

// EmitTrait emits item 2: the named interface carrying one render method
// per block plus the overall trait-walk method.
func EmitTrait(traitName string, blocks []Block) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "// %s is the synthesized inheritance trait for this template path.\n", traitName)
	fmt.Fprintf(&sb, "type %s interface {\n", traitName)
	for _, b := range blocks {
		fmt.Fprintf(&sb, "\t%s(w io.Writer) error\n", TraitMethodName(b.Name))
	}
	fmt.Fprintf(&sb, "\tRenderTraitInto(impl %s, w io.Writer) error\n", traitName)
	sb.WriteString("}\n")
	return sb.String()
}

// EmitTraitImpl emits item 3: default block bodies on recv, plus
// RenderTraitInto which walks the template's top-level nodes but dispatches
// every BlockDef call site to impl's override — so the most-derived
// record's overrides take effect even when the walk happens on a parent.
func EmitTraitImpl(recv, recvType, traitName string, blocks []Block, walkBody string) string {
	var sb strings.Builder
	for _, b := range blocks {
		fmt.Fprintf(&sb, "func (%s *%s) %s(w io.Writer) error {\n", recv, recvType, TraitMethodName(b.Name))
		sb.WriteString(b.Body)
		sb.WriteString("\treturn nil\n}\n\n")
	}
	fmt.Fprintf(&sb, "func (%s *%s) RenderTraitInto(impl %s, w io.Writer) error {\n", recv, recvType, traitName)
	sb.WriteString(walkBody)
	sb.WriteString("\treturn nil\n}\n")
	return sb.String()
}

// EmitTemplateRoutine emits item 1, plus the two convenience surfaces
// spec.md:197 requires alongside it: Render (a buffered convenience
// wrapper returning the rendered string) and String (a fmt.Stringer
// implementation mapping render errors to a lossy placeholder, per
// spec.md:211). For a non-derived template with blocks, render_into
// dispatches to the trait walk on self. For a derived template, it
// delegates to the parent's trait walk with self as the overriding impl.
// For a plain template (no blocks at all), inlineBody is the whole node
// walk and traitName/parentType are unused.
func EmitTemplateRoutine(recv, recvType, traitName, parentType string, derived, hasBlocks bool, inlineBody string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "func (%s *%s) RenderInto(w io.Writer) error {\n", recv, recvType)
	switch {
	case !hasBlocks:
		sb.WriteString(inlineBody)
	case derived:
		fmt.Fprintf(&sb, "\treturn %s.parentBridge().RenderTraitInto(%s, w)\n", recv, recv)
	default:
		fmt.Fprintf(&sb, "\treturn %s.RenderTraitInto(%s, w)\n", recv, recv)
	}
	if hasBlocks {
		sb.WriteString("}\n")
	} else {
		sb.WriteString("\treturn nil\n}\n")
	}
	_ = parentType

	fmt.Fprintf(&sb, "\nfunc (%s *%s) Render() (string, error) {\n", recv, recvType)
	sb.WriteString("\tvar buf strings.Builder\n")
	fmt.Fprintf(&sb, "\tif err := %s.RenderInto(&buf); err != nil {\n", recv)
	sb.WriteString("\t\treturn \"\", err\n\t}\n\treturn buf.String(), nil\n}\n")

	fmt.Fprintf(&sb, "\nfunc (%s *%s) String() string {\n", recv, recvType)
	fmt.Fprintf(&sb, "\ts, err := %s.Render()\n", recv)
	sb.WriteString("\tif err != nil {\n\t\treturn \"<render error>\"\n\t}\n\treturn s\n}\n")

	return sb.String()
}

// EmitParentBridge emits item 4: a derived template's accessor onto the
// parent record, required because the trait's default method bodies may
// reference fields defined only on the parent.
func EmitParentBridge(recv, recvType, parentType, parentTraitName string) string {
	return fmt.Sprintf(
		"func (%s *%s) parentBridge() %s {\n\treturn &%s.Parent\n}\n",
		recv, recvType, parentTraitName, recv,
	)
}
