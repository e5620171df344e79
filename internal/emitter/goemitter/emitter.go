// Package goemitter renders the Go protocol unit-test files for a service:
// one _test.go per operation that has declared test cases.
package goemitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/iancoleman/strcase"

	"github.com/apiforge/sdkgen/internal/codegen"
	"github.com/apiforge/sdkgen/internal/codegen/protocoltest"
	"github.com/apiforge/sdkgen/internal/model"
)

// Options controls how the emitter renders the test files.
type Options struct {
	OutDir      string // required; target directory to write generated files
	PackageName string // generated client package name; derived from the service when empty
	ModulePath  string // generated client module path; defaults to example.com/<package>
	Force       bool   // overwrite existing files
	DryRun      bool   // don't write, only plan
	Verbose     bool
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and final resolved names.
type Result struct {
	PackageName string
	ModulePath  string
	Planned     []PlannedFile
}

// Emit renders protocol unit tests for every operation the suite declares
// cases for.
func Emit(ctx context.Context, m *model.Model, suite *model.TestSuite, opts Options) (*Result, error) {
	_ = ctx
	if m == nil {
		return nil, fmt.Errorf("goemitter: nil model")
	}
	if suite == nil {
		return nil, fmt.Errorf("goemitter: nil test suite")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("goemitter: OutDir is required")
	}

	packageName := sanitizePackageName(opts.PackageName)
	if packageName == "" {
		packageName = sanitizePackageName(m.Service.Name)
		if packageName == "" {
			packageName = "client"
		}
	}
	modulePath := strings.TrimSpace(opts.ModulePath)
	if modulePath == "" {
		modulePath = "example.com/" + packageName
	}
	symbols := codegen.NewSymbolProvider(modulePath + "/types")

	files := map[string][]byte{}
	for _, ot := range suite.Operations {
		op := m.Operation(ot.Operation)
		if op == nil {
			return nil, fmt.Errorf("goemitter: suite references unknown operation %q", ot.Operation)
		}
		if len(ot.ResponseTests) == 0 && len(ot.ErrorTests) == 0 {
			continue
		}

		w := codegen.NewWriter()
		base := protocoltest.Config{
			Model:     m,
			Symbols:   symbols,
			Protocol:  m.Service.Protocol,
			Operation: op,
		}

		if len(ot.ResponseTests) > 0 {
			cfg := base
			cfg.Cases = ot.ResponseTests
			if err := protocoltest.NewResponseGenerator(cfg).Generate(w); err != nil {
				return nil, fmt.Errorf("goemitter: operation %s: %w", op.Name, err)
			}
		}

		errorTests := append([]model.ErrorTests(nil), ot.ErrorTests...)
		sort.Slice(errorTests, func(i, j int) bool { return errorTests[i].Error < errorTests[j].Error })
		for i, et := range errorTests {
			errShape := op.Error(et.Error)
			if errShape == nil {
				return nil, fmt.Errorf("goemitter: operation %s does not declare error %q", op.Name, et.Error)
			}
			if len(ot.ResponseTests) > 0 || i > 0 {
				w.Writef("")
			}
			cfg := base
			cfg.Error = errShape
			cfg.Cases = et.Cases
			gen, err := protocoltest.NewResponseErrorGenerator(cfg)
			if err != nil {
				return nil, fmt.Errorf("goemitter: operation %s: %w", op.Name, err)
			}
			if err := gen.Generate(w); err != nil {
				return nil, fmt.Errorf("goemitter: operation %s error %s: %w", op.Name, et.Error, err)
			}
		}

		name := fmt.Sprintf("api_op_%s_test.go", strcase.ToSnake(op.Name))
		files[name] = w.Finish(packageName)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("goemitter: suite declares no test cases")
	}

	// Plan in deterministic order
	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}

	return &Result{PackageName: packageName, ModulePath: modulePath, Planned: planned}, nil
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	// Pre-flight: if directory exists and not empty and not force, error.
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("goemitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}

func sanitizePackageName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}
