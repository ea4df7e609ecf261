package util

import (
	"fmt"
	"reflect"
)

// IsStructInitialized reports an error naming the first exported field of s (a pointer
// to a struct) that still holds its zero value. Fields tagged `wire:"-"` are skipped.
func IsStructInitialized(s any) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return fmt.Errorf("struct pointer is nil")
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("expected struct, got %s", val.Kind())
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() || field.Tag.Get("wire") == "-" {
			continue
		}

		if val.Field(i).IsZero() {
			return fmt.Errorf("struct field %q is not initialized", field.Name)
		}
	}

	return nil
}
