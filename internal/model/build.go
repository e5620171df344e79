package model

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/iancoleman/strcase"
)

// DefaultProtocol is assumed when the caller does not pick one.
const DefaultProtocol = "restJson"

// BuildOption configures how the Model is built from an OpenAPI doc.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[string]struct{}
	protocol    string
	serviceID   string
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if c.includeTags == nil {
				c.includeTags = make(map[string]struct{})
			}
			c.includeTags[t] = struct{}{}
		}
	}
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if c.excludeTags == nil {
				c.excludeTags = make(map[string]struct{})
			}
			c.excludeTags[t] = struct{}{}
		}
	}
}

// WithMethods keeps only operations using one of the provided HTTP methods.
func WithMethods(methods []string) BuildOption {
	return func(c *buildConfig) {
		for _, m := range methods {
			m = strings.ToLower(strings.TrimSpace(m))
			if m == "" {
				continue
			}
			if c.methods == nil {
				c.methods = make(map[string]struct{})
			}
			c.methods[m] = struct{}{}
		}
	}
}

// WithProtocol sets the protocol name recorded on the service.
func WithProtocol(name string) BuildOption {
	return func(c *buildConfig) { c.protocol = strings.TrimSpace(name) }
}

// WithServiceID overrides the service identity the generated client reports.
func WithServiceID(id string) BuildOption {
	return func(c *buildConfig) { c.serviceID = strings.TrimSpace(id) }
}

// Build normalizes an OpenAPI document into the codegen Model: component
// schemas become named shapes, error responses (status >= 400 referencing a
// named schema) mark those shapes as error shapes, and each operation gets
// synthesized input/output structures.
func Build(ctx context.Context, doc *openapi3.T, opts ...BuildOption) (*Model, error) {
	_ = ctx
	if doc == nil {
		return nil, fmt.Errorf("model: nil document")
	}
	if doc.Info == nil {
		return nil, fmt.Errorf("model: document has no info block")
	}

	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.protocol == "" {
		cfg.protocol = DefaultProtocol
	}

	m := &Model{
		Service: Service{
			Name:     strcase.ToCamel(doc.Info.Title),
			ID:       strings.TrimSpace(doc.Info.Title),
			Title:    doc.Info.Title,
			Version:  doc.Info.Version,
			Protocol: cfg.protocol,
		},
		Shapes: map[string]*Shape{},
	}
	if cfg.serviceID != "" {
		m.Service.ID = cfg.serviceID
	}
	if m.Service.Name == "" {
		return nil, fmt.Errorf("model: document title is empty")
	}

	b := &builder{model: m}

	// Named shapes first so operation bindings can reference them.
	if doc.Components != nil && doc.Components.Schemas != nil {
		names := make([]string, 0, len(doc.Components.Schemas))
		for name := range doc.Components.Schemas {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, err := b.namedShape(name, doc.Components.Schemas[name]); err != nil {
				return nil, err
			}
		}
	}

	if doc.Paths != nil {
		pathKeys := make([]string, 0, len(doc.Paths))
		for p := range doc.Paths {
			pathKeys = append(pathKeys, p)
		}
		sort.Strings(pathKeys)

		for _, p := range pathKeys {
			item := doc.Paths[p]
			if item == nil {
				continue
			}
			ops := []struct {
				method string
				op     *openapi3.Operation
			}{
				{"get", item.Get},
				{"post", item.Post},
				{"put", item.Put},
				{"delete", item.Delete},
				{"patch", item.Patch},
				{"head", item.Head},
				{"options", item.Options},
			}
			for _, pair := range ops {
				if pair.op == nil {
					continue
				}
				if len(cfg.methods) > 0 {
					if _, ok := cfg.methods[pair.method]; !ok {
						continue
					}
				}
				if !tagsAllowed(pair.op.Tags, cfg) {
					continue
				}
				op, err := b.operation(p, pair.method, pair.op)
				if err != nil {
					return nil, err
				}
				if op != nil {
					m.Service.Operations = append(m.Service.Operations, op)
				}
			}
		}
	}

	sort.Slice(m.Service.Operations, func(i, j int) bool {
		return m.Service.Operations[i].Name < m.Service.Operations[j].Name
	})
	if len(m.Service.Operations) == 0 {
		return nil, fmt.Errorf("model: no operations matched (check operationId values and filters)")
	}
	return m, nil
}

func tagsAllowed(tags []string, cfg buildConfig) bool {
	for _, t := range tags {
		if _, ok := cfg.excludeTags[t]; ok {
			return false
		}
	}
	if len(cfg.includeTags) == 0 {
		return true
	}
	for _, t := range tags {
		if _, ok := cfg.includeTags[t]; ok {
			return true
		}
	}
	return false
}

type builder struct {
	model *Model
}

// namedShape resolves a component schema into a named shape, memoized so
// recursive references terminate.
func (b *builder) namedShape(name string, ref *openapi3.SchemaRef) (*Shape, error) {
	if existing, ok := b.model.Shapes[name]; ok {
		return existing, nil
	}
	if ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("model: schema %q has no value", name)
	}
	shape := &Shape{Name: strcase.ToCamel(name), Documentation: ref.Value.Description}
	b.model.Shapes[name] = shape
	if err := b.fillShape(shape, ref.Value); err != nil {
		return nil, fmt.Errorf("model: schema %q: %w", name, err)
	}
	return shape, nil
}

// anonShape resolves an unnamed (inline or referenced) schema to a shape.
func (b *builder) anonShape(ref *openapi3.SchemaRef) (*Shape, error) {
	if ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("missing schema")
	}
	if name := refName(ref.Ref); name != "" {
		return b.namedShape(name, ref)
	}
	shape := &Shape{Documentation: ref.Value.Description}
	if err := b.fillShape(shape, ref.Value); err != nil {
		return nil, err
	}
	return shape, nil
}

func (b *builder) fillShape(shape *Shape, sc *openapi3.Schema) error {
	switch sc.Type {
	case "object", "":
		if len(sc.Properties) == 0 && sc.AdditionalProperties.Schema != nil {
			shape.Type = MapType
			value, err := b.anonShape(sc.AdditionalProperties.Schema)
			if err != nil {
				return err
			}
			shape.Value = value
			return nil
		}
		shape.Type = StructureType
		required := map[string]bool{}
		for _, r := range sc.Required {
			required[r] = true
		}
		propNames := make([]string, 0, len(sc.Properties))
		for p := range sc.Properties {
			propNames = append(propNames, p)
		}
		sort.Strings(propNames)
		for _, p := range propNames {
			target, err := b.anonShape(sc.Properties[p])
			if err != nil {
				return fmt.Errorf("property %q: %w", p, err)
			}
			shape.Members = append(shape.Members, &Member{
				Name:     strcase.ToCamel(p),
				Target:   target,
				Required: required[p],
			})
		}
		return nil
	case "array":
		shape.Type = ListType
		elem, err := b.anonShape(sc.Items)
		if err != nil {
			return err
		}
		shape.Elem = elem
		return nil
	case "string":
		if sc.Format == "byte" || sc.Format == "binary" {
			shape.Type = BlobType
		} else {
			shape.Type = StringType
		}
		return nil
	case "integer":
		if sc.Format == "int64" {
			shape.Type = LongType
		} else {
			shape.Type = IntegerType
		}
		return nil
	case "number":
		shape.Type = DoubleType
		return nil
	case "boolean":
		shape.Type = BooleanType
		return nil
	default:
		return fmt.Errorf("unsupported schema type %q", sc.Type)
	}
}

func (b *builder) operation(path, method string, src *openapi3.Operation) (*Operation, error) {
	// Operations without an operationId cannot be named and are skipped.
	if strings.TrimSpace(src.OperationID) == "" {
		return nil, nil
	}
	op := &Operation{
		Name:          strcase.ToCamel(src.OperationID),
		Method:        strings.ToUpper(method),
		Path:          path,
		Documentation: firstNonEmpty(src.Summary, src.Description),
	}

	input := &Shape{Name: op.Name + "Input", Type: StructureType, Synthetic: true}
	for _, pref := range src.Parameters {
		if pref == nil || pref.Value == nil {
			continue
		}
		target := &Shape{Type: StringType}
		if pref.Value.Schema != nil {
			resolved, err := b.anonShape(pref.Value.Schema)
			if err == nil {
				target = resolved
			}
		}
		input.Members = append(input.Members, &Member{
			Name:     strcase.ToCamel(pref.Value.Name),
			Target:   target,
			Required: pref.Value.Required,
		})
	}
	if src.RequestBody != nil && src.RequestBody.Value != nil {
		if bodyShape, ok := b.jsonBodyShape(src.RequestBody.Value.Content); ok {
			if bodyShape.Type == StructureType {
				input.Members = append(input.Members, bodyShape.Members...)
			}
		}
	}
	op.Input = input

	output := &Shape{Name: op.Name + "Output", Type: StructureType, Synthetic: true}
	statuses := make([]string, 0, len(src.Responses))
	for status := range src.Responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		respRef := src.Responses[status]
		if respRef == nil || respRef.Value == nil {
			continue
		}
		code, err := strconv.Atoi(status)
		if err != nil {
			continue // "default" and patterned ranges carry no status binding
		}
		bodyShape, ok := b.jsonBodyShape(respRef.Value.Content)
		if !ok {
			continue
		}
		switch {
		case code >= 200 && code < 300:
			if bodyShape.Type == StructureType && len(output.Members) == 0 {
				output.Members = append(output.Members, bodyShape.Members...)
			}
		case code >= 400:
			// Only named shapes can be declared error types.
			if bodyShape.Name == "" {
				continue
			}
			bodyShape.IsError = true
			if bodyShape.StatusCode == 0 {
				bodyShape.StatusCode = code
			}
			if op.Error(bodyShape.Name) == nil {
				op.Errors = append(op.Errors, bodyShape)
			}
		}
	}
	op.Output = output
	sort.Slice(op.Errors, func(i, j int) bool { return op.Errors[i].Name < op.Errors[j].Name })
	return op, nil
}

func (b *builder) jsonBodyShape(content openapi3.Content) (*Shape, bool) {
	if content == nil {
		return nil, false
	}
	mt := content.Get("application/json")
	if mt == nil || mt.Schema == nil {
		return nil, false
	}
	shape, err := b.anonShape(mt.Schema)
	if err != nil {
		return nil, false
	}
	return shape, true
}

func refName(ref string) string {
	if ref == "" {
		return ""
	}
	parts := strings.Split(ref, "/")
	return parts[len(parts)-1]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
