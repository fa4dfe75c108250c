package ioc_test

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/testutil"
)

func TestLoadOptions(t *testing.T) {
	t.Run("full document", func(t *testing.T) {
		t.Parallel()

		opts, err := ioc.LoadOptions(strings.NewReader(`
default_lifestyle: Scoped
allow_overriding: true
log_level: debug
`))
		require.NoError(t, err)
		assert.Equal(t, ioc.Scoped, opts.DefaultLifestyle)
		assert.True(t, opts.AllowOverriding)
		require.NotNil(t, opts.Logger)
		assert.True(t, opts.Logger.Core().Enabled(zap.DebugLevel))
	})

	t.Run("empty document uses defaults", func(t *testing.T) {
		t.Parallel()

		opts, err := ioc.LoadOptions(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, ioc.Transient, opts.DefaultLifestyle)
		assert.False(t, opts.AllowOverriding)
		assert.NotNil(t, opts.Logger)
	})

	t.Run("log level filters", func(t *testing.T) {
		t.Parallel()

		opts, err := ioc.LoadOptions(strings.NewReader("log_level: warn\n"))
		require.NoError(t, err)
		assert.False(t, opts.Logger.Core().Enabled(zap.InfoLevel))
		assert.True(t, opts.Logger.Core().Enabled(zap.WarnLevel))
	})

	t.Run("unknown lifestyle", func(t *testing.T) {
		t.Parallel()

		_, err := ioc.LoadOptions(strings.NewReader("default_lifestyle: forever\n"))
		testutil.AssertConfigurationError(t, err, nil)
		assert.Contains(t, err.Error(), `unknown lifestyle "forever"`)
	})

	t.Run("unknown log level", func(t *testing.T) {
		t.Parallel()

		_, err := ioc.LoadOptions(strings.NewReader("log_level: chatty\n"))
		testutil.AssertConfigurationError(t, err, nil)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		_, err := ioc.LoadOptions(strings.NewReader("default_lifestyle: [\n"))
		testutil.AssertConfigurationError(t, err, nil)
	})
}

func TestLifestyleName_YAML(t *testing.T) {
	type config struct {
		Lifestyle ioc.LifestyleName `yaml:"lifestyle"`
	}

	out, err := yaml.Marshal(config{Lifestyle: ioc.LifestyleName{Lifestyle: ioc.Singleton}})
	require.NoError(t, err)
	assert.Equal(t, "lifestyle: Singleton\n", string(out))

	var decoded config
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, ioc.Singleton, decoded.Lifestyle.Lifestyle)
}

func TestWithOptions(t *testing.T) {
	var resolved []reflect.Type

	opts, err := ioc.LoadOptions(strings.NewReader("default_lifestyle: singleton\n"))
	require.NoError(t, err)
	opts.Logger = zap.NewNop()
	opts.OnResolved = func(serviceType reflect.Type, _ any, _ time.Duration) {
		resolved = append(resolved, serviceType)
	}

	c := ioc.New(ioc.WithOptions(opts))
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, ioc.Register[*testutil.Recorder](c, testutil.NewRecorder, nil))

	first := testutil.RequireResolve[*testutil.Recorder](t, c)
	second := testutil.RequireResolve[*testutil.Recorder](t, c)
	assert.Same(t, first, second)
	assert.Len(t, resolved, 2)
}
