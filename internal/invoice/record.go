package invoice

import (
	"reflect"
	"strings"

	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
)

// recordFieldIndex maps each InvoiceRecord JSON key to its struct field index.
var recordFieldIndex = func() map[string]int {
	t := reflect.TypeOf(models.InvoiceRecord{})
	index := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			index[name] = i
		}
	}
	return index
}()

// RecordFields returns the JSON keys of InvoiceRecord in declaration order.
func RecordFields() []string {
	t := reflect.TypeOf(models.InvoiceRecord{})
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		names = append(names, name)
	}
	return names
}

// setField assigns a coerced value to the field with the given JSON key.
// Nil values and type mismatches leave the field untouched.
func setField(rec *models.InvoiceRecord, name string, value any) bool {
	if value == nil {
		return false
	}
	i, ok := recordFieldIndex[name]
	if !ok {
		return false
	}
	field := reflect.ValueOf(rec).Elem().Field(i)
	v := reflect.ValueOf(value)
	if !v.Type().AssignableTo(field.Type()) {
		return false
	}
	field.Set(v)
	return true
}

// isAbsent reports whether a record field carries no usable value: a nil
// pointer, an empty string or an empty slice.
func isAbsent(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.String:
		return v.Len() == 0
	case reflect.Slice:
		return v.Len() == 0
	}
	return v.IsZero()
}
