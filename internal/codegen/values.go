package codegen

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/iancoleman/strcase"

	"github.com/apiforge/sdkgen/internal/model"
)

// WriteFieldValue emits `name: <literal>,` for one struct field, rendering
// nested composite literals from the shape graph. Structure members absent
// from the value map produce no line at all.
func WriteFieldValue(w *Writer, symbols SymbolProvider, name string, shape *model.Shape, optional bool, value any) error {
	switch shape.Type {
	case model.StructureType:
		params, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("codegen: field %s: expected map for structure %s, got %T", name, shape.Name, value)
		}
		var memberErr error
		w.Block(fmt.Sprintf("%s: &%s{", name, w.Use(symbols.ShapeSymbol(shape))), "},", func() {
			for _, m := range shape.Members {
				v, present := memberValue(params, m.Name)
				if !present {
					continue
				}
				if err := WriteFieldValue(w, symbols, m.Name, m.Target, !m.Required, v); err != nil && memberErr == nil {
					memberErr = err
				}
			}
		})
		return memberErr

	case model.ListType:
		items, ok := value.([]any)
		if !ok {
			return fmt.Errorf("codegen: field %s: expected list, got %T", name, value)
		}
		var elemErr error
		w.Block(fmt.Sprintf("%s: %s{", name, typeRef(w, symbols, shape)), "},", func() {
			for _, item := range items {
				if err := writeElementValue(w, symbols, shape.Elem, item); err != nil && elemErr == nil {
					elemErr = err
				}
			}
		})
		return elemErr

	case model.MapType:
		entries, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("codegen: field %s: expected map, got %T", name, value)
		}
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var entryErr error
		w.Block(fmt.Sprintf("%s: %s{", name, typeRef(w, symbols, shape)), "},", func() {
			for _, k := range keys {
				if err := writeEntryValue(w, symbols, k, shape.Value, entries[k]); err != nil && entryErr == nil {
					entryErr = err
				}
			}
		})
		return entryErr

	default:
		lit, err := scalarLiteral(shape, value)
		if err != nil {
			return fmt.Errorf("codegen: field %s: %w", name, err)
		}
		if optional {
			helper, err := ptrHelper(shape)
			if err != nil {
				return fmt.Errorf("codegen: field %s: %w", name, err)
			}
			w.Writef("%s: %s(%s),", name, w.Use(DepPtr.Symbol(helper)), lit)
			return nil
		}
		w.Writef("%s: %s,", name, lit)
		return nil
	}
}

func writeElementValue(w *Writer, symbols SymbolProvider, shape *model.Shape, value any) error {
	if shape.Type == model.StructureType {
		params, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("codegen: expected map for structure %s, got %T", shape.Name, value)
		}
		var memberErr error
		w.Block(fmt.Sprintf("&%s{", w.Use(symbols.ShapeSymbol(shape))), "},", func() {
			for _, m := range shape.Members {
				v, present := memberValue(params, m.Name)
				if !present {
					continue
				}
				if err := WriteFieldValue(w, symbols, m.Name, m.Target, !m.Required, v); err != nil && memberErr == nil {
					memberErr = err
				}
			}
		})
		return memberErr
	}
	lit, err := scalarLiteral(shape, value)
	if err != nil {
		return err
	}
	w.Writef("%s,", lit)
	return nil
}

func writeEntryValue(w *Writer, symbols SymbolProvider, key string, shape *model.Shape, value any) error {
	if shape.Type == model.StructureType {
		params, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("codegen: expected map for structure %s, got %T", shape.Name, value)
		}
		var memberErr error
		w.Block(fmt.Sprintf("%q: &%s{", key, w.Use(symbols.ShapeSymbol(shape))), "},", func() {
			for _, m := range shape.Members {
				v, present := memberValue(params, m.Name)
				if !present {
					continue
				}
				if err := WriteFieldValue(w, symbols, m.Name, m.Target, !m.Required, v); err != nil && memberErr == nil {
					memberErr = err
				}
			}
		})
		return memberErr
	}
	lit, err := scalarLiteral(shape, value)
	if err != nil {
		return err
	}
	w.Writef("%q: %s,", key, lit)
	return nil
}

// memberValue looks a member up by its exported name or its lowerCamel form,
// so suite files may use either convention.
func memberValue(params map[string]any, name string) (any, bool) {
	if v, ok := params[name]; ok {
		return v, true
	}
	if v, ok := params[strcase.ToLowerCamel(name)]; ok {
		return v, true
	}
	return nil, false
}

// typeRef renders the Go type for a shape as referenced from emitted code.
func typeRef(w *Writer, symbols SymbolProvider, shape *model.Shape) string {
	switch shape.Type {
	case model.StructureType:
		return "*" + w.Use(symbols.ShapeSymbol(shape))
	case model.ListType:
		return "[]" + typeRef(w, symbols, shape.Elem)
	case model.MapType:
		return "map[string]" + typeRef(w, symbols, shape.Value)
	case model.StringType:
		return "string"
	case model.IntegerType:
		return "int32"
	case model.LongType:
		return "int64"
	case model.DoubleType:
		return "float64"
	case model.BooleanType:
		return "bool"
	case model.BlobType:
		return "[]byte"
	default:
		return "any"
	}
}

func ptrHelper(shape *model.Shape) (string, error) {
	switch shape.Type {
	case model.StringType:
		return "String", nil
	case model.IntegerType:
		return "Int32", nil
	case model.LongType:
		return "Int64", nil
	case model.DoubleType:
		return "Float64", nil
	case model.BooleanType:
		return "Bool", nil
	default:
		return "", fmt.Errorf("no pointer helper for shape type %s", shape.Type)
	}
}

func scalarLiteral(shape *model.Shape, value any) (string, error) {
	switch shape.Type {
	case model.StringType:
		s, err := asString(value)
		if err != nil {
			return "", err
		}
		return strconv.Quote(s), nil
	case model.BlobType:
		s, err := asString(value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("[]byte(%s)", strconv.Quote(s)), nil
	case model.IntegerType, model.LongType:
		n, err := asInt64(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case model.DoubleType:
		f, err := asFloat64(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case model.BooleanType:
		b, ok := value.(bool)
		if !ok {
			return "", fmt.Errorf("expected bool, got %T", value)
		}
		return strconv.FormatBool(b), nil
	default:
		return "", fmt.Errorf("unsupported scalar shape type %s", shape.Type)
	}
}

func asString(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", value)
	}
	return s, nil
}

func asInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", value)
	}
}

func asFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", value)
	}
}
