package environment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/rtkit/pkg/environment"
)

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := environment.WithContext(context.Background(), string(environment.Production))
	assert.Equal(t, "production", environment.FromContext(ctx))
	assert.True(t, environment.IsProduction(ctx))
	assert.False(t, environment.IsDevelopment(ctx))
}

func TestFromContext_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, environment.FromContext(context.Background()))
	assert.Empty(t, environment.FromContext(nil)) //nolint:staticcheck // nil guard behavior under test
	assert.False(t, environment.IsProduction(context.Background()))
}

func TestShortAliases(t *testing.T) {
	t.Parallel()

	assert.True(t, environment.IsProduction(environment.WithContext(context.Background(), "prod")))
	assert.True(t, environment.IsDevelopment(environment.WithContext(context.Background(), "dev")))
}
