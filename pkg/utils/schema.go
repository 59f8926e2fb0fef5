package utils

import (
	"reflect"
	"strings"
)

// GenerateSchema reflects over T and produces a JSON Schema describing it,
// suitable for an OpenAI structured-output ResponseFormatJSONSchemaParam.
// The required list follows struct declaration order; properties is a map,
// so it carries no field order. A field is required unless
// its json tag carries "omitempty". The jsonschema_description tag, where
// present, becomes the property's "description".
//
// No third-party schema generator (e.g. invopop/jsonschema) sits in the
// dependency set this module draws from, so this is a small stdlib
// reflection walk rather than an import.
func GenerateSchema[T any]() map[string]any {
	var zero T
	return reflectSchema(reflect.TypeOf(zero))
}

func reflectSchema(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		return structSchema(t)
	case reflect.Slice, reflect.Array:
		return map[string]any{
			"type":  "array",
			"items": reflectSchema(t.Elem()),
		}
	case reflect.Map:
		return map[string]any{
			"type":                 "object",
			"additionalProperties": reflectSchema(t.Elem()),
		}
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	default:
		return map[string]any{"type": "string"}
	}
}

func structSchema(t reflect.Type) map[string]any {
	properties := make(map[string]any, t.NumField())

	required := make([]string, 0, t.NumField())

	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitempty, skip := jsonFieldName(field)
		if skip {
			continue
		}

		propSchema := reflectSchema(field.Type)
		if desc := field.Tag.Get("jsonschema_description"); desc != "" {
			propSchema["description"] = desc
		}

		properties[name] = propSchema
		if !omitempty {
			required = append(required, name)
		}
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func jsonFieldName(field reflect.StructField) (name string, omitempty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}

	parts := strings.Split(tag, ",")

	name = field.Name
	if parts[0] != "" {
		name = parts[0]
	}

	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}

	return name, omitempty, false
}
