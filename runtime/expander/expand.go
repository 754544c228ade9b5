// Package expander resolves $step.field / ${step.field} references in step
// inputs and gate payloads against the accumulated run context.
package expander

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var (
	pureVariableExpr = regexp.MustCompile(`^\$[a-zA-Z_][a-zA-Z0-9_.]*$`)
	bracedExpr       = regexp.MustCompile(`\$\{([^{}]+)\}`)
	bareExpr         = regexp.MustCompile(`\$([a-zA-Z_][a-zA-Z0-9_.]*)`)
)

// Expand resolves variable references in value against from. Maps and slices
// are expanded recursively; a string that is a single reference returns the
// typed value, mixed text interpolates string representations.
func Expand(value interface{}, from map[string]interface{}) interface{} {
	switch actual := value.(type) {
	case string:
		return expandText(actual, from)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(actual))
		for k, v := range actual {
			out[k] = Expand(v, from)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(actual))
		for i, v := range actual {
			out[i] = Expand(v, from)
		}
		return out
	default:
		return value
	}
}

// ExpandMap expands every value of the supplied map.
func ExpandMap(values map[string]interface{}, from map[string]interface{}) map[string]interface{} {
	if values == nil {
		return nil
	}
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		out[k] = Expand(v, from)
	}
	return out
}

func expandText(value string, from map[string]interface{}) interface{} {
	if value == "" || !strings.Contains(value, "$") {
		return value
	}

	// A string that is exactly one reference yields the typed value so step
	// inputs can carry maps, slices and numbers, not just text.
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") &&
		!strings.Contains(value[2:len(value)-1], "${") {
		if resolved, ok := resolve(value[2:len(value)-1], from); ok {
			return resolved
		}
		return nil
	}
	if pureVariableExpr.MatchString(value) {
		if resolved, ok := resolve(value[1:], from); ok {
			return resolved
		}
		// keep the token intact when unresolved, matching text interpolation
		return value
	}

	result := bracedExpr.ReplaceAllStringFunc(value, func(match string) string {
		resolved, ok := resolve(match[2:len(match)-1], from)
		if !ok {
			return ""
		}
		return stringify(resolved)
	})
	result = bareExpr.ReplaceAllStringFunc(result, func(match string) string {
		resolved, ok := resolve(match[1:], from)
		if !ok {
			return match
		}
		rType := reflect.TypeOf(resolved)
		if rType != nil {
			switch rType.Kind() {
			case reflect.Slice, reflect.Map:
				return match // complex values do not interpolate into text
			}
		}
		return stringify(resolved)
	})
	return result
}

// resolve walks a dotted path through nested maps and struct fields, so a
// reference can reach into a typed step output as well as raw context data.
func resolve(path string, from map[string]interface{}) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = from
	for _, part := range parts {
		if node, ok := current.(map[string]interface{}); ok {
			if current, ok = node[part]; !ok {
				return nil, false
			}
			continue
		}
		value, ok := field(current, part)
		if !ok {
			return nil, false
		}
		current = value
	}
	return current, true
}

func field(holder interface{}, name string) (interface{}, bool) {
	v := reflect.ValueOf(holder)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Map {
		key := reflect.ValueOf(name)
		if !key.Type().AssignableTo(v.Type().Key()) {
			return nil, false
		}
		item := v.MapIndex(key)
		if !item.IsValid() {
			return nil, false
		}
		return item.Interface(), true
	}
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	rType := v.Type()
	for i := 0; i < rType.NumField(); i++ {
		structField := rType.Field(i)
		if structField.PkgPath != "" {
			continue
		}
		tag := strings.Split(structField.Tag.Get("json"), ",")[0]
		if structField.Name == name || tag == name || strings.EqualFold(structField.Name, name) {
			return v.Field(i).Interface(), true
		}
	}
	return nil, false
}

func stringify(value interface{}) string {
	if value == nil {
		return ""
	}
	switch actual := value.(type) {
	case string:
		return actual
	case bool:
		return strconv.FormatBool(actual)
	case int:
		return strconv.Itoa(actual)
	case int64:
		return strconv.FormatInt(actual, 10)
	case float64:
		if actual == float64(int64(actual)) {
			return strconv.FormatInt(int64(actual), 10)
		}
		return strconv.FormatFloat(actual, 'f', -1, 64)
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	}
	return fmt.Sprintf("%v", value)
}
