// Command tmplc is the build-time driver: it loads a YAML manifest of
// template attachments, resolves and compiles each one, and writes the
// generated Go source next to the host package (SPEC_FULL.md §2, §4.C).
// It plays the role the original spec calls the procedural-macro driver —
// an ambient collaborator whose own invocation mechanics are out of scope,
// only its input shape (the manifest) is.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/mattn/go-colorable"
	"gopkg.in/yaml.v3"

	"github.com/zipreport/tmplc/codegen"
	"github.com/zipreport/tmplc/input"
	"github.com/zipreport/tmplc/resolver"
)

// manifestEntry is one record's attachment, spec.md §6's attribute table
// plus the Go-specific `parent` cross-check flag (SPEC_FULL.md §4.C).
type manifestEntry struct {
	input.Config `yaml:",inline"`
	Parent       bool `yaml:"parent"`
}

func main() {
	manifestPath := flag.String("manifest", "templates.yaml", "path to the template manifest")
	srcDir := flag.String("dir", ".", "directory holding both the manifest and the host Go package")
	flag.Parse()

	diag := colorable.NewColorableStderr()

	if err := run(*manifestPath, *srcDir, diag); err != nil {
		fmt.Fprintln(diag, color.RedString("tmplc: %v", err))
		os.Exit(1)
	}
}

func run(manifestPath, srcDir string, diag io.Writer) error {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	var manifest map[string]manifestEntry
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	fset := token.NewFileSet()
	fs := osfs.New(srcDir)
	resolve := resolver.New(fs)

	targets := make([]codegen.Target, 0, len(manifest))
	for recordName, entry := range manifest {
		if err := entry.Config.Validate(); err != nil {
			return fmt.Errorf("manifest entry %q: %w", recordName, err)
		}

		var canonicalPath string
		var source []byte
		if entry.Config.Source != "" {
			canonicalPath = recordName + ".inline"
			source = []byte(entry.Config.Source)
		} else {
			cp, src, err := resolve.Resolve("", entry.Config.Path)
			if err != nil {
				return fmt.Errorf("manifest entry %q: resolve %q: %w", recordName, entry.Config.Path, err)
			}
			canonicalPath, source = cp, src
		}

		ti, err := input.Resolve(entry.Config, canonicalPath, source)
		if err != nil {
			return fmt.Errorf("manifest entry %q: %w", recordName, err)
		}
		ti.HostType = recordName

		if entry.Parent {
			if err := checkParentField(fset, srcDir, recordName); err != nil {
				return fmt.Errorf("manifest entry %q: %w", recordName, err)
			}
		}

		if ti.PrintMode == input.PrintAST || ti.PrintMode == input.PrintAll {
			fmt.Fprintln(diag, color.CyanString("--- %s: source ---", recordName))
			fmt.Fprintln(diag, string(source))
		}

		targets = append(targets, codegen.Target{Input: ti, HostType: recordName})
	}

	results, err := codegen.Compile(resolve, targets)
	if err != nil {
		fmt.Fprintln(diag, color.RedString(err.Error()))
		return err
	}

	for i, r := range results {
		destPath := filepath.Join(srcDir, strings.ToLower(r.HostType)+"_tmplc.go")
		src := assembleFile(r)
		if targets[i].Input.PrintMode == input.PrintCode || targets[i].Input.PrintMode == input.PrintAll {
			fmt.Fprintln(diag, color.GreenString("--- %s: generated code ---", r.HostType))
			fmt.Fprintln(diag, src)
		}
		if err := os.WriteFile(destPath, []byte(src), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", destPath, err)
		}
	}

	log.Printf("tmplc: compiled %d template(s)", len(results))
	return nil
}

// assembleFile wraps one compiled unit's body in its package header. Go
// rejects an unused import, so only the packages the body actually
// references are listed beyond io and strings, which every unit needs
// unconditionally: io for every RenderInto / RenderTraitInto /
// RenderBlock_*Into write, strings for the Render convenience wrapper's
// strings.Builder.
func assembleFile(r codegen.Result) string {
	var sb strings.Builder
	sb.WriteString("// Code generated by tmplc. DO NOT EDIT.\n\n")
	sb.WriteString("package main\n\n")
	sb.WriteString("import (\n\t\"io\"\n\t\"strings\"\n")
	if strings.Contains(r.Source, "fmt.Sprintf") {
		sb.WriteString("\t\"fmt\"\n")
	}
	if strings.Contains(r.Source, "tmplcrt.") {
		sb.WriteString("\n\t\"github.com/zipreport/tmplc/tmplcrt\"\n")
	}
	if strings.Contains(r.Source, "tmplcfilters.") {
		sb.WriteString("\t\"github.com/zipreport/tmplc/tmplcfilters\"\n")
	}
	sb.WriteString(")\n\n")
	sb.WriteString(r.Source)
	return sb.String()
}

// checkParentField implements SPEC_FULL.md §4.C's `_parent` cross-check:
// a manifest entry declaring `parent: true` must name a Go struct with a
// field literally named Parent, found by scanning every .go file in dir.
func checkParentField(fset *token.FileSet, dir, recordName string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, e.Name()), nil, 0)
		if err != nil {
			continue
		}
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok || ts.Name.Name != recordName {
					continue
				}
				st, ok := ts.Type.(*ast.StructType)
				if !ok {
					return fmt.Errorf("%s is not a struct type", recordName)
				}
				for _, field := range st.Fields.List {
					for _, n := range field.Names {
						if n.Name == "Parent" {
							return nil
						}
					}
				}
				return fmt.Errorf("%s is marked parent: true but has no field named Parent", recordName)
			}
		}
	}
	return fmt.Errorf("struct %s not found under %s", recordName, dir)
}
