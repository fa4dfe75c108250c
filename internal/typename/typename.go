// Package typename formats reflect types for error messages and splits
// generic instantiations into their definition and type arguments.
package typename

import (
	"reflect"
	"strings"
)

// Format formats a reflect.Type for error messages.
func Format(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		// Format pointers as *Type instead of *package.Type
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + short(elem.Name())
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + short(elem.Name())
		}
		return t.String()
	case reflect.Map:
		key := t.Key()
		elem := t.Elem()
		keyStr := key.Name()
		if keyStr == "" {
			keyStr = key.String()
		}
		elemStr := elem.Name()
		if elemStr == "" {
			elemStr = elem.String()
		}
		return "map[" + keyStr + "]" + elemStr
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return short(t.Name())
		}
		return t.String()
	}
}

// short trims package paths from the type arguments of a generic name, so
// Handler[github.com/acme/app.CreateUser] becomes Handler[app.CreateUser].
func short(name string) string {
	open := strings.IndexByte(name, '[')
	if open < 0 {
		return name
	}

	var b strings.Builder
	b.WriteString(name[:open])

	segment := open
	for i := open; i < len(name); i++ {
		switch name[i] {
		case '[', ',', ' ', ']', '*':
			b.WriteString(trimPath(name[segment:i]))
			b.WriteByte(name[i])
			segment = i + 1
		}
	}
	b.WriteString(trimPath(name[segment:]))

	return b.String()
}

func trimPath(s string) string {
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Generic splits an instantiated generic type into its definition and its
// type argument list. Pointers are dereferenced first. The definition is
// qualified with the package path so that two generic types with the same
// name in different packages never match.
//
//	Generic(reflect.TypeOf((*Handler[CreateUser])(nil)).Elem())
//	// "github.com/acme/app.Handler", "[github.com/acme/app.CreateUser]", true
func Generic(t reflect.Type) (definition, args string, ok bool) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Name() == "" {
		return "", "", false
	}

	name := t.Name()
	open := strings.IndexByte(name, '[')
	if open < 0 {
		return "", "", false
	}

	return t.PkgPath() + "." + name[:open], name[open:], true
}
