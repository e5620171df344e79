package model

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TestSuite is the declarative protocol test-case data consumed by the
// protocol test generators. One file covers one service.
type TestSuite struct {
	Service    string           `yaml:"service"`
	Operations []OperationTests `yaml:"operations"`
}

// OperationTests groups the cases declared for one operation.
type OperationTests struct {
	Operation     string             `yaml:"operation"`
	ResponseTests []ResponseTestCase `yaml:"responseTests"`
	ErrorTests    []ErrorTests       `yaml:"errorTests"`
}

// ErrorTests holds the cases for one declared error shape of an operation.
type ErrorTests struct {
	Error string             `yaml:"error"`
	Cases []ResponseTestCase `yaml:"cases"`
}

// ResponseTestCase describes one HTTP response scenario and its expected
// decoded outcome. Body and BodyMediaType are optional; absent values stay
// nil so generators can omit them entirely.
type ResponseTestCase struct {
	ID            string            `yaml:"id"`
	Documentation string            `yaml:"documentation"`
	StatusCode    int               `yaml:"statusCode"`
	Headers       map[string]string `yaml:"headers"`
	BodyMediaType *string           `yaml:"bodyMediaType"`
	Body          *string           `yaml:"body"`
	Params        map[string]any    `yaml:"params"`
}

// LoadSuite reads a protocol test suite from a YAML file. Unknown fields are
// rejected so typos surface at load time rather than as silently dropped
// cases.
func LoadSuite(path string) (*TestSuite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("suite: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var suite TestSuite
	if err := dec.Decode(&suite); err != nil {
		return nil, fmt.Errorf("suite: parse %s: %w", path, err)
	}
	return &suite, nil
}

// Validate checks the suite against the model: every operation and error
// shape it names must exist, case ids must be present and unique within
// their list, status codes must be set, and every params key must name a
// member of the target shape. Generators assume a validated suite and do no
// checking of their own.
func (s *TestSuite) Validate(m *Model) error {
	if s == nil {
		return fmt.Errorf("suite: nil suite")
	}
	if len(s.Operations) == 0 {
		return fmt.Errorf("suite: no operations declared")
	}
	for _, ot := range s.Operations {
		name := strings.TrimSpace(ot.Operation)
		if name == "" {
			return fmt.Errorf("suite: operation entry missing a name")
		}
		op := m.Operation(name)
		if op == nil {
			return fmt.Errorf("suite: unknown operation %q", name)
		}
		if err := validateCases(name, op.Output, ot.ResponseTests); err != nil {
			return err
		}
		for _, et := range ot.ErrorTests {
			errName := strings.TrimSpace(et.Error)
			if errName == "" {
				return fmt.Errorf("suite: operation %q: error entry missing a name", name)
			}
			errShape := op.Error(errName)
			if errShape == nil {
				return fmt.Errorf("suite: operation %q does not declare error %q", name, errName)
			}
			if len(et.Cases) == 0 {
				return fmt.Errorf("suite: operation %q error %q has no cases", name, errName)
			}
			if err := validateCases(name, errShape, et.Cases); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateCases(op string, target *Shape, cases []ResponseTestCase) error {
	seen := make(map[string]struct{}, len(cases))
	for _, tc := range cases {
		id := strings.TrimSpace(tc.ID)
		if id == "" {
			return fmt.Errorf("suite: operation %q: case missing an id", op)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("suite: operation %q: duplicate case id %q", op, id)
		}
		seen[id] = struct{}{}
		if tc.StatusCode <= 0 {
			return fmt.Errorf("suite: operation %q case %q: statusCode must be positive", op, id)
		}
		if len(tc.Params) > 0 {
			if err := validateParamKeys(op, id, target, tc.Params); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateParamKeys walks expected params against the shape graph so a typoed
// field name fails at load time instead of silently weakening the generated
// assertions. Value kinds that don't fit the shape are left for generation to
// report.
func validateParamKeys(op, id string, shape *Shape, value any) error {
	if shape == nil {
		return nil
	}
	switch shape.Type {
	case StructureType:
		params, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		for key, v := range params {
			m := shape.MemberForKey(key)
			if m == nil {
				target := shape.Name
				if target == "" {
					target = "the target structure"
				}
				return fmt.Errorf("suite: operation %q case %q: unknown param %q for %s", op, id, key, target)
			}
			if err := validateParamKeys(op, id, m.Target, v); err != nil {
				return err
			}
		}
	case ListType:
		items, ok := value.([]any)
		if !ok {
			return nil
		}
		for _, item := range items {
			if err := validateParamKeys(op, id, shape.Elem, item); err != nil {
				return err
			}
		}
	case MapType:
		entries, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		for _, v := range entries {
			if err := validateParamKeys(op, id, shape.Value, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Operation returns the suite entry for the named operation, or nil.
func (s *TestSuite) Operation(name string) *OperationTests {
	for i := range s.Operations {
		if s.Operations[i].Operation == name {
			return &s.Operations[i]
		}
	}
	return nil
}
