package reflection

import (
	"fmt"
	"reflect"
	"sync"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// Analyzer performs reflection-based analysis of constructors.
// It caches analysis results for performance.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[reflect.Type]*ConstructorInfo
}

// ConstructorInfo contains analyzed information about a constructor function.
// The analysis depends only on the function type, so it is shared by every
// constructor with the same signature.
type ConstructorInfo struct {
	Type           reflect.Type
	Parameters     []ParameterInfo
	ReturnType     reflect.Type // First return value
	HasErrorReturn bool         // Returns error as last value
}

// ParameterInfo describes a constructor parameter. Parameters are identified
// by position, so two parameters of the same type stay distinguishable.
type ParameterInfo struct {
	Type  reflect.Type
	Index int
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		cache: make(map[reflect.Type]*ConstructorInfo),
	}
}

// Analyze analyzes a constructor function and extracts its parameters and
// return type. Constructors must return T or (T, error).
func (a *Analyzer) Analyze(constructor any) (*ConstructorInfo, error) {
	if constructor == nil {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	val := reflect.ValueOf(constructor)
	if val.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %T", constructor)
	}

	if val.IsNil() {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	typ := val.Type()

	a.mu.RLock()
	if cached, ok := a.cache[typ]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	if typ.IsVariadic() {
		return nil, fmt.Errorf("variadic constructor %v is not supported", typ)
	}

	info := &ConstructorInfo{Type: typ}

	info.Parameters = make([]ParameterInfo, typ.NumIn())
	for i := 0; i < typ.NumIn(); i++ {
		info.Parameters[i] = ParameterInfo{
			Type:  typ.In(i),
			Index: i,
		}
	}

	switch typ.NumOut() {
	case 0:
		return nil, fmt.Errorf("constructor must return at least one value")
	case 1:
		if typ.Out(0) == errType {
			return nil, fmt.Errorf("constructor must return at least one non-error value")
		}
	case 2:
		if typ.Out(1) != errType {
			return nil, fmt.Errorf("second return value must be error")
		}
		info.HasErrorReturn = true
	default:
		return nil, fmt.Errorf("constructor can return at most 2 values")
	}
	info.ReturnType = typ.Out(0)

	a.mu.Lock()
	a.cache[typ] = info
	a.mu.Unlock()

	return info, nil
}

// ParametersMatching returns every parameter whose type satisfies match.
func (info *ConstructorInfo) ParametersMatching(match func(reflect.Type) bool) []ParameterInfo {
	var params []ParameterInfo
	for _, p := range info.Parameters {
		if match(p.Type) {
			params = append(params, p)
		}
	}
	return params
}

// IsFactoryOf reports whether t is a zero-argument function returning
// serviceType, optionally followed by an error.
func IsFactoryOf(t, serviceType reflect.Type) bool {
	if t == nil || serviceType == nil || t.Kind() != reflect.Func {
		return false
	}

	if t.NumIn() != 0 || t.IsVariadic() {
		return false
	}

	switch t.NumOut() {
	case 1:
		return t.Out(0) == serviceType
	case 2:
		return t.Out(0) == serviceType && t.Out(1) == errType
	default:
		return false
	}
}

// FactoryReturnsError reports whether a factory type returns (T, error).
func FactoryReturnsError(t reflect.Type) bool {
	return t.Kind() == reflect.Func && t.NumOut() == 2 && t.Out(1) == errType
}
