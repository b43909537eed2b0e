// Package fieldaccess shapes handler results by the caller's roles.
//
// Rules are declared per Go type at startup:
//
//	fieldaccess.Register(UserView{},
//	    fieldaccess.Rule{Field: "email", Roles: []string{"admin", "user"}},
//	    fieldaccess.Rule{Field: "mobile", Roles: []string{"admin"}},
//	)
//
// Filter walks a value and returns a JSON-shaped copy: structs become
// map[string]any keyed by their json names, slices and arrays become []any,
// maps are copied, and other values pass through. A ruled field is dropped
// unless the caller holds one of its roles. Fields without a rule are always
// kept, so a newly sensitive field leaks until it is given a rule.
package fieldaccess

import (
	"encoding"
	"encoding/json"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/sentinel-iam/pkg/security/auth"
)

// Rule restricts one field of a type to a role allowlist.
type Rule struct {
	// Field is the json name or the Go name of the field.
	Field string

	// Roles are the roles allowed to see the field.
	Roles []string
}

// Registry holds field rules per type.
type Registry struct {
	mu    sync.RWMutex
	rules map[reflect.Type]map[string][]string
	infos sync.Map
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[reflect.Type]map[string][]string)}
}

var defaultRegistry = NewRegistry()

// Default returns the process wide registry used by Register and Filter.
func Default() *Registry { return defaultRegistry }

// Register adds rules for the type of sample to the default registry.
func Register(sample any, rules ...Rule) { defaultRegistry.Register(sample, rules...) }

// Filter filters v with the default registry.
func Filter(v any, roles []string) any { return defaultRegistry.Filter(v, roles) }

// Register adds rules for the type of sample. Pointer and value samples
// register the same type. Later rules for the same field replace earlier ones.
func (r *Registry) Register(sample any, rules ...Rule) {
	t := indirectType(reflect.TypeOf(sample))
	if t == nil || t.Kind() != reflect.Struct {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byField, ok := r.rules[t]
	if !ok {
		byField = make(map[string][]string)
		r.rules[t] = byField
	}
	for _, rule := range rules {
		normalized := make([]string, 0, len(rule.Roles))
		for _, role := range rule.Roles {
			normalized = append(normalized, auth.NormalizeRole(role))
		}
		byField[rule.Field] = normalized
	}
}

// Rules returns a copy of the rules registered for the type of sample,
// keyed by field.
func (r *Registry) Rules(sample any) map[string][]string {
	t := indirectType(reflect.TypeOf(sample))

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.rules[t]))
	for field, roles := range r.rules[t] {
		out[field] = append([]string(nil), roles...)
	}
	return out
}

// Filter returns a filtered copy of v for a caller holding roles.
// The input is never modified, and filtering a result twice with the same
// roles gives the same result.
func (r *Registry) Filter(v any, roles []string) any {
	if v == nil {
		return nil
	}

	held := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		held[auth.NormalizeRole(role)] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.walk(reflect.ValueOf(v), held)
}

var (
	timeType          = reflect.TypeOf(time.Time{})
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

func (r *Registry) walk(v reflect.Value, held map[string]struct{}) any {
	if !v.IsValid() {
		return nil
	}

	if isLeaf(v.Type()) {
		if !v.CanInterface() {
			return nil
		}
		return v.Interface()
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return r.walk(v.Elem(), held)

	case reflect.Struct:
		return r.walkStruct(v, held)

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		fallthrough

	case reflect.Array:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = r.walk(v.Index(i), held)
		}
		return out

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		if v.Type().Key().Kind() != reflect.String {
			return v.Interface()
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = r.walk(iter.Value(), held)
		}
		return out

	default:
		return v.Interface()
	}
}

func (r *Registry) walkStruct(v reflect.Value, held map[string]struct{}) map[string]any {
	t := v.Type()
	rules := r.rules[t]
	out := make(map[string]any)

	for _, f := range r.fieldsOf(t) {
		fv := v.FieldByIndex(f.index)

		if allowed, ok := ruleFor(rules, f); ok && !holdsAny(held, allowed) {
			continue
		}

		if f.inline {
			if embedded, ok := r.walk(fv, held).(map[string]any); ok {
				for k, val := range embedded {
					if allowed, ok := rules[k]; ok && !holdsAny(held, allowed) {
						continue
					}
					if _, exists := out[k]; !exists {
						out[k] = val
					}
				}
			}
			continue
		}

		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		if f.quoted {
			out[f.name] = quote(fv)
			continue
		}
		out[f.name] = r.walk(fv, held)
	}
	return out
}

func ruleFor(rules map[string][]string, f fieldInfo) ([]string, bool) {
	if rules == nil {
		return nil, false
	}
	if allowed, ok := rules[f.name]; ok {
		return allowed, true
	}
	allowed, ok := rules[f.goName]
	return allowed, ok
}

func holdsAny(held map[string]struct{}, allowed []string) bool {
	for _, role := range allowed {
		if _, ok := held[role]; ok {
			return true
		}
	}
	return false
}

type fieldInfo struct {
	name      string
	goName    string
	index     []int
	omitEmpty bool
	quoted    bool
	inline    bool
}

func (r *Registry) fieldsOf(t reflect.Type) []fieldInfo {
	if cached, ok := r.infos.Load(t); ok {
		return cached.([]fieldInfo)
	}

	fields := make([]fieldInfo, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")
		info := fieldInfo{
			name:      name,
			goName:    sf.Name,
			index:     sf.Index,
			omitEmpty: hasOption(opts, "omitempty"),
			quoted:    hasOption(opts, "string") && isQuotable(sf.Type),
		}

		embeddedStruct := sf.Anonymous && indirectType(sf.Type).Kind() == reflect.Struct
		if !sf.IsExported() && !embeddedStruct {
			continue
		}
		if embeddedStruct && name == "" {
			info.inline = true
		} else if !sf.IsExported() {
			continue
		}
		if info.name == "" {
			info.name = sf.Name
		}
		fields = append(fields, info)
	}

	r.infos.Store(t, fields)
	return fields
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

// isEmptyValue reports the values encoding/json drops for omitempty.
// Structs and time.Time are never empty.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}

// isQuotable reports whether the ",string" option applies to t.
func isQuotable(t reflect.Type) bool {
	if t.Name() == "" && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	}
	return false
}

// quote renders a ",string" field the way encoding/json does: the JSON
// encoding of the scalar, carried as a string.
func quote(v reflect.Value) any {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	raw, err := json.Marshal(v.Interface())
	if err != nil {
		return v.Interface()
	}
	return string(raw)
}

func isLeaf(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
			return true
		}
	}
	return false
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
