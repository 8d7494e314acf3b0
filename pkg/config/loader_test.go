package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rtkit/pkg/config"
)

type workerConfig struct {
	Workers int    `env:"RTKIT_TEST_WORKERS" envDefault:"4"`
	Name    string `env:"RTKIT_TEST_NAME" envDefault:"rtkit"`
}

type requiredConfig struct {
	Token string `env:"RTKIT_TEST_REQUIRED_TOKEN,required"`
}

func TestLoad_Defaults(t *testing.T) {
	config.ResetCache()

	var cfg workerConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "rtkit", cfg.Name)
}

func TestLoad_FromEnv(t *testing.T) {
	config.ResetCache()
	t.Setenv("RTKIT_TEST_WORKERS", "16")

	var cfg workerConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, 16, cfg.Workers)
}

func TestLoad_Cached(t *testing.T) {
	config.ResetCache()
	t.Setenv("RTKIT_TEST_WORKERS", "8")

	var first workerConfig
	require.NoError(t, config.Load(&first))

	// Later env changes do not affect the cached type.
	t.Setenv("RTKIT_TEST_WORKERS", "32")
	var second workerConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, 8, second.Workers)
}

func TestLoad_NilPointer(t *testing.T) {
	config.ResetCache()

	var cfg *workerConfig
	err := config.Load(cfg)
	assert.ErrorIs(t, err, config.ErrNilPointer)
}

func TestLoad_RequiredMissing(t *testing.T) {
	config.ResetCache()

	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestMustLoad_PanicsOnFailure(t *testing.T) {
	config.ResetCache()

	var cfg requiredConfig
	assert.Panics(t, func() { config.MustLoad(&cfg) })
}

func TestLoadEnv_MissingFile(t *testing.T) {
	assert.Error(t, config.LoadEnv("testdata/does-not-exist.env"))
}
