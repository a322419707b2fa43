package event

import (
	"reflect"
	"strings"
)

type DefaultFieldExtractor struct{}

// ExtractFields projects obj onto the named json fields. Embedded structs are
// flattened the way encoding/json flattens them.
func (e *DefaultFieldExtractor) ExtractFields(obj interface{}, fields []string) map[string]interface{} {
	result := make(map[string]interface{})
	if obj == nil || len(fields) == 0 {
		return result
	}

	val := reflect.ValueOf(obj)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return result
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return result
	}

	e.collect(val, fields, result)
	return result
}

func (e *DefaultFieldExtractor) collect(val reflect.Value, fields []string, out map[string]interface{}) {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		jsonTag := strings.Split(field.Tag.Get("json"), ",")[0]
		if jsonTag == "-" {
			continue
		}

		fv := val.Field(i)
		if field.Anonymous && jsonTag == "" {
			if fv.Kind() == reflect.Ptr {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				e.collect(fv, fields, out)
				continue
			}
		}

		if jsonTag == "" {
			jsonTag = field.Name
		}
		if contains(fields, jsonTag) {
			out[jsonTag] = fv.Interface()
		}
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
