package goemitter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apiforge/sdkgen/internal/model"
)

func strPtr(s string) *string { return &s }

func minimalModel() *model.Model {
	str := &model.Shape{Type: model.StringType}
	notFound := &model.Shape{
		Name:       "NotFoundException",
		Type:       model.StructureType,
		IsError:    true,
		StatusCode: 404,
		Members:    []*model.Member{{Name: "Message", Target: str}},
	}
	op := &model.Operation{
		Name:   "GetWidget",
		Method: "GET",
		Path:   "/widgets/{id}",
		Input:  &model.Shape{Name: "GetWidgetInput", Type: model.StructureType, Synthetic: true},
		Output: &model.Shape{
			Name:      "GetWidgetOutput",
			Type:      model.StructureType,
			Synthetic: true,
			Members:   []*model.Member{{Name: "Name", Target: str}},
		},
		Errors: []*model.Shape{notFound},
	}
	return &model.Model{
		Service: model.Service{
			Name:       "Widgets",
			ID:         "Widgets",
			Protocol:   model.DefaultProtocol,
			Operations: []*model.Operation{op},
		},
		Shapes: map[string]*model.Shape{"NotFoundException": notFound},
	}
}

func minimalSuite() *model.TestSuite {
	return &model.TestSuite{
		Service: "Widgets",
		Operations: []model.OperationTests{{
			Operation: "GetWidget",
			ResponseTests: []model.ResponseTestCase{{
				ID:         "GetWidgetOK",
				StatusCode: 200,
				Body:       strPtr(`{"name":"sprocket"}`),
				Params:     map[string]any{"Name": "sprocket"},
			}},
			ErrorTests: []model.ErrorTests{{
				Error: "NotFoundException",
				Cases: []model.ResponseTestCase{{
					ID:         "WidgetNotFound",
					StatusCode: 404,
					Params:     map[string]any{"Message": "not found"},
				}},
			}},
		}},
	}
}

func TestEmit_DryRun_Plan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	res, err := Emit(ctx, minimalModel(), minimalSuite(), Options{
		OutDir:      dir,
		PackageName: "widgets",
		ModulePath:  "example.com/widgets",
		DryRun:      true,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if res.PackageName != "widgets" || res.ModulePath != "example.com/widgets" {
		t.Fatalf("names mismatch: %+v", res)
	}
	if len(res.Planned) != 1 || res.Planned[0].RelPath != "api_op_get_widget_test.go" {
		t.Fatalf("unexpected plan: %+v", res.Planned)
	}
	if res.Planned[0].Size == 0 {
		t.Fatalf("planned file has no content")
	}
	// Dry-run should not have written files
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("expected no files written on dry-run")
	}
}

func TestEmit_WriteAndContents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	_, err := Emit(ctx, minimalModel(), minimalSuite(), Options{
		OutDir: dir,
		Force:  true,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "api_op_get_widget_test.go"))
	if err != nil {
		t.Fatalf("read generated file: %v", err)
	}
	src := string(data)

	if !strings.HasPrefix(src, "// Code generated by sdkgen. DO NOT EDIT.") {
		t.Fatalf("missing generated header: %s", src)
	}
	// Package derived from the service name when not set.
	if !strings.Contains(src, "package widgets") {
		t.Fatalf("missing package clause: %s", src)
	}
	for _, want := range []string{
		"func TestClient_GetWidgetrestJsonDeserialize(t *testing.T) {",
		"func TestClient_GetWidgetNotFoundExceptionrestJsonDeserialize(t *testing.T) {",
		`types "example.com/widgets/types"`,
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("generated file missing %q:\n%s", want, src)
		}
	}
	// Success test precedes the error tests in the same file.
	if strings.Index(src, "GetWidgetrestJson") > strings.Index(src, "NotFoundException") {
		t.Fatalf("success test not first:\n%s", src)
	}
}

func TestEmit_ErrorTestsSortedByName(t *testing.T) {
	t.Parallel()
	m := minimalModel()
	str := &model.Shape{Type: model.StringType}
	throttle := &model.Shape{
		Name:       "ThrottleException",
		Type:       model.StructureType,
		IsError:    true,
		StatusCode: 429,
		Members:    []*model.Member{{Name: "Message", Target: str}},
	}
	op := m.Operation("GetWidget")
	op.Errors = append(op.Errors, throttle)
	m.Shapes["ThrottleException"] = throttle

	suite := minimalSuite()
	// Declared out of order on purpose.
	suite.Operations[0].ErrorTests = []model.ErrorTests{
		{Error: "ThrottleException", Cases: []model.ResponseTestCase{{ID: "Throttled", StatusCode: 429}}},
		{Error: "NotFoundException", Cases: []model.ResponseTestCase{{ID: "WidgetNotFound", StatusCode: 404}}},
	}

	dir := t.TempDir()
	if _, err := Emit(context.Background(), m, suite, Options{OutDir: dir}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "api_op_get_widget_test.go"))
	if err != nil {
		t.Fatalf("read generated file: %v", err)
	}
	src := string(data)
	nf := strings.Index(src, "TestClient_GetWidgetNotFoundException")
	th := strings.Index(src, "TestClient_GetWidgetThrottleException")
	if nf < 0 || th < 0 {
		t.Fatalf("missing error test functions:\n%s", src)
	}
	if nf > th {
		t.Fatalf("error tests not sorted by error name:\n%s", src)
	}
}

func TestEmit_NoForce_NonEmptyDir(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	// create a file to make directory non-empty
	if err := os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}
	_, err := Emit(ctx, minimalModel(), minimalSuite(), Options{OutDir: dir})
	if err == nil {
		t.Fatalf("expected error on non-empty dir without force")
	}
}

func TestEmit_SuiteMustDeclareCases(t *testing.T) {
	t.Parallel()
	suite := &model.TestSuite{
		Service:    "Widgets",
		Operations: []model.OperationTests{{Operation: "GetWidget"}},
	}
	_, err := Emit(context.Background(), minimalModel(), suite, Options{OutDir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "no test cases") {
		t.Fatalf("expected no-test-cases error, got: %v", err)
	}
}

func TestSanitizePackageName(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"Widget Service": "widgetservice",
		"my-api":         "myapi",
		"2fast":          "_2fast",
		"  ":             "",
	}
	for in, want := range cases {
		if got := sanitizePackageName(in); got != want {
			t.Errorf("sanitizePackageName(%q) = %q, want %q", in, got, want)
		}
	}
}
