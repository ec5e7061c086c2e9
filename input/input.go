// Package input assembles the TemplateInput record described in spec.md
// §3/§6: it parses the host record's template attribute (here, one entry
// of a YAML manifest, since Go has no procedural-macro attribute surface —
// see SPEC_FULL.md §4.C) and fills in the ext/escape_mode defaults.
package input

import (
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EscapeMode selects whether interpolations are HTML-escaped by default.
type EscapeMode int

const (
	EscapeHTML EscapeMode = iota
	EscapeNone
)

// PrintMode selects which intermediates get dumped to stderr.
type PrintMode int

const (
	PrintNone PrintMode = iota
	PrintAST
	PrintCode
	PrintAll
)

// Config is the Go rendition of spec.md §6's attribute table, loaded from
// one entry of a YAML manifest (SPEC_FULL.md §4.C). Exactly one of Path or
// Source must be set.
type Config struct {
	Path    string `yaml:"path" validate:"required_without=Source"`
	Source  string `yaml:"source" validate:"required_without=Path"`
	Ext     string `yaml:"ext"`
	Print   string `yaml:"print" validate:"omitempty,oneof=none ast code all"`
	Escape  string `yaml:"escape" validate:"omitempty,oneof=html none"`
	Parent  bool   `yaml:"parent"`
}

var validate = validator.New()

// Validate enforces the "exactly one of path/source" contract and the
// enumerated print/escape values before any compilation begins (spec.md §7,
// SPEC_FULL.md testable property 9: manifest validation fails closed).
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Path != "" && c.Source != "" {
		return errBothPathAndSource
	}
	return nil
}

var errBothPathAndSource = configError("exactly one of path or source is required, not both")

type configError string

func (e configError) Error() string { return string(e) }

// TemplateInput is spec.md §3's assembled record: {record, path, source,
// ext, escape_mode}. HostType names the Go struct the generated methods
// attach to; it is filled in by the caller (cmd/tmplc) after a go/ast scan,
// not by this package, since parsing Go source is outside the core's scope.
type TemplateInput struct {
	HostType      string
	CanonicalPath string
	Source        []byte
	Ext           string
	EscapeMode    EscapeMode
	PrintMode     PrintMode
}

// Resolve fills in ext/escape_mode defaults per spec.md §3: ext defaults
// from the filename extension (or "txt" for inline source); escape_mode
// defaults to Html iff ext is html/htm/xml.
func Resolve(cfg Config, canonicalPath string, source []byte) (TemplateInput, error) {
	if err := cfg.Validate(); err != nil {
		return TemplateInput{}, err
	}

	ext := cfg.Ext
	if ext == "" {
		if cfg.Path != "" {
			ext = strings.TrimPrefix(filepath.Ext(cfg.Path), ".")
		}
		if ext == "" {
			ext = "txt"
		}
	}

	escape := EscapeNone
	switch cfg.Escape {
	case "html":
		escape = EscapeHTML
	case "none":
		escape = EscapeNone
	default:
		switch ext {
		case "html", "htm", "xml":
			escape = EscapeHTML
		}
	}

	print := PrintNone
	switch cfg.Print {
	case "ast":
		print = PrintAST
	case "code":
		print = PrintCode
	case "all":
		print = PrintAll
	}

	return TemplateInput{
		CanonicalPath: canonicalPath,
		Source:        source,
		Ext:           ext,
		EscapeMode:    escape,
		PrintMode:     print,
	}, nil
}
