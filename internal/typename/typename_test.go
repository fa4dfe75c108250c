package typename

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

type service interface{ Do() }

type impl struct{}

type box[T any] struct{ v T }

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want string
	}{
		{"nil", nil, "<nil>"},
		{"named", reflect.TypeOf(impl{}), "impl"},
		{"pointer", reflect.TypeOf(&impl{}), "*impl"},
		{"interface", reflect.TypeOf((*service)(nil)).Elem(), "service"},
		{"slice", reflect.TypeOf([]service{}), "[]service"},
		{"builtin", reflect.TypeOf(0), "int"},
		{"map", reflect.TypeOf(map[string]int{}), "map[string]int"},
		{"generic", reflect.TypeOf(box[impl]{}), "box[typename.impl]"},
		{"generic pointer", reflect.TypeOf(&box[int]{}), "*box[int]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.typ))
		})
	}
}

func TestGeneric(t *testing.T) {
	t.Run("instantiated type", func(t *testing.T) {
		def, args, ok := Generic(reflect.TypeOf(box[impl]{}))
		assert.True(t, ok)
		assert.Equal(t, "github.com/junioryono/ioc/internal/typename.box", def)
		assert.Contains(t, args, "typename.impl")
	})

	t.Run("pointer is dereferenced", func(t *testing.T) {
		def1, args1, ok1 := Generic(reflect.TypeOf(&box[int]{}))
		def2, args2, ok2 := Generic(reflect.TypeOf(box[int]{}))
		assert.True(t, ok1)
		assert.True(t, ok2)
		assert.Equal(t, def2, def1)
		assert.Equal(t, "[int]", args1)
		assert.Equal(t, args2, args1)
	})

	t.Run("different arguments", func(t *testing.T) {
		_, a, _ := Generic(reflect.TypeOf(box[int]{}))
		_, b, _ := Generic(reflect.TypeOf(box[string]{}))
		assert.NotEqual(t, a, b)
	})

	t.Run("not generic", func(t *testing.T) {
		_, _, ok := Generic(reflect.TypeOf(impl{}))
		assert.False(t, ok)

		_, _, ok = Generic(reflect.TypeOf([]int{}))
		assert.False(t, ok)

		_, _, ok = Generic(nil)
		assert.False(t, ok)
	})
}
