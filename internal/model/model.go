package model

import "github.com/iancoleman/strcase"

// Codegen model shared by the symbol provider, the protocol test generators,
// and the emitters. Built from an OpenAPI document by Build.

type ShapeType string

const (
	StructureType ShapeType = "structure"
	StringType    ShapeType = "string"
	IntegerType   ShapeType = "integer"
	LongType      ShapeType = "long"
	DoubleType    ShapeType = "double"
	BooleanType   ShapeType = "boolean"
	BlobType      ShapeType = "blob"
	ListType      ShapeType = "list"
	MapType       ShapeType = "map"
)

// Model is the root of the shape graph for one service.
type Model struct {
	Service Service
	Shapes  map[string]*Shape // named shapes by name
}

// Service identifies the API the client SDK is generated for.
type Service struct {
	Name       string // exported client name, derived from the document title
	ID         string // service identity the generated client reports
	Title      string
	Version    string
	Protocol   string // e.g. restJson
	Operations []*Operation
}

// Operation is one API operation exposed by the generated client.
type Operation struct {
	Name          string // exported method name, from operationId
	Method        string
	Path          string
	Documentation string
	Input         *Shape
	Output        *Shape
	Errors        []*Shape // declared error shapes, sorted by name
}

// Shape is a named or synthesized type in the model graph.
type Shape struct {
	Name          string
	Type          ShapeType
	Documentation string
	Members       []*Member // structure members, declaration order
	Elem          *Shape    // list element
	Value         *Shape    // map value (keys are strings)
	IsError       bool
	StatusCode    int  // HTTP status an error shape is delivered with
	Synthetic     bool // operation input/output shapes synthesized by Build
}

// Member is one field of a structure shape.
type Member struct {
	Name     string
	Target   *Shape
	Required bool
}

// Operation returns the named operation, or nil.
func (m *Model) Operation(name string) *Operation {
	for _, op := range m.Service.Operations {
		if op.Name == name {
			return op
		}
	}
	return nil
}

// Shape returns the named shape, or nil.
func (m *Model) Shape(name string) *Shape {
	if m.Shapes == nil {
		return nil
	}
	return m.Shapes[name]
}

// Error returns the operation's declared error shape by name, or nil.
func (op *Operation) Error(name string) *Shape {
	for _, e := range op.Errors {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Member returns the structure member by name, or nil.
func (s *Shape) Member(name string) *Member {
	for _, m := range s.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// MemberForKey matches a suite params key against the structure's members,
// accepting either the exported name or its lowerCamel form. This is the same
// matching the value renderer applies when populating expected values.
func (s *Shape) MemberForKey(key string) *Member {
	for _, m := range s.Members {
		if key == m.Name || key == strcase.ToLowerCamel(m.Name) {
			return m
		}
	}
	return nil
}
