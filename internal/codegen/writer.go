package codegen

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Writer accumulates generated Go source line by line and tracks the imports
// the emitted code references. The caller owns the writer's lifecycle; the
// generators only append to it.
type Writer struct {
	buf     bytes.Buffer
	indent  int
	imports map[string]string // import path → alias ("" when unaliased)
}

func NewWriter() *Writer {
	return &Writer{imports: map[string]string{}}
}

// Writef appends one line (or several, when the formatted text contains
// newlines) at the current indentation. An empty format emits a blank line.
// The format is always interpreted by fmt: escape literal percent signs.
func (w *Writer) Writef(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			w.buf.WriteString(strings.Repeat("\t", w.indent))
			w.buf.WriteString(line)
		}
		w.buf.WriteByte('\n')
	}
}

// Block writes open, runs fn one indent level deeper, then writes close.
func (w *Writer) Block(open, close string, fn func()) {
	w.Writef("%s", open)
	w.indent++
	fn()
	w.indent--
	w.Writef("%s", close)
}

// Indent and Outdent adjust the indentation for constructs Block cannot
// express, like a map literal whose type and entries close on the same line.
func (w *Writer) Indent()  { w.indent++ }
func (w *Writer) Outdent() { w.indent-- }

// AddImport registers an import path for the rendered file. A non-empty
// alias wins over a previously registered empty one; conflicting non-empty
// aliases keep the first registration.
func (w *Writer) AddImport(importPath, alias string) {
	if importPath == "" {
		return
	}
	if existing, ok := w.imports[importPath]; ok {
		if existing == "" && alias != "" {
			w.imports[importPath] = alias
		}
		return
	}
	w.imports[importPath] = alias
}

// Use registers the symbol's import and returns the qualified reference to
// splice into emitted code.
func (w *Writer) Use(sym Symbol) string {
	if sym.ImportPath == "" {
		return sym.Name
	}
	w.AddImport(sym.ImportPath, sym.Alias)
	qualifier := sym.Alias
	if qualifier == "" {
		qualifier = path.Base(sym.ImportPath)
	}
	return qualifier + "." + sym.Name
}

// Ptr returns a pointer reference to the symbol, registering its import.
func (w *Writer) Ptr(sym Symbol) string {
	return "*" + w.Use(sym)
}

// String returns the body accumulated so far, without header or imports.
func (w *Writer) String() string {
	return w.buf.String()
}

// Finish renders the complete source file: generated-code header, package
// clause, grouped import block, then the body. Standard library imports are
// grouped before module imports, each group sorted.
func (w *Writer) Finish(packageName string) []byte {
	var out bytes.Buffer
	out.WriteString("// Code generated by sdkgen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&out, "package %s\n\n", packageName)

	if len(w.imports) > 0 {
		var std, ext []string
		for p := range w.imports {
			if strings.Contains(strings.SplitN(p, "/", 2)[0], ".") {
				ext = append(ext, p)
			} else {
				std = append(std, p)
			}
		}
		sort.Strings(std)
		sort.Strings(ext)

		out.WriteString("import (\n")
		writeGroup := func(group []string) {
			for _, p := range group {
				if alias := w.imports[p]; alias != "" {
					fmt.Fprintf(&out, "\t%s %q\n", alias, p)
				} else {
					fmt.Fprintf(&out, "\t%q\n", p)
				}
			}
		}
		writeGroup(std)
		if len(std) > 0 && len(ext) > 0 {
			out.WriteByte('\n')
		}
		writeGroup(ext)
		out.WriteString(")\n\n")
	}

	out.Write(w.buf.Bytes())
	return out.Bytes()
}
