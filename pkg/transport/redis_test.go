package transport_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/rtkit/pkg/transport"
)

func TestRedisKeyNaming(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "rtkit:conn:c1", transport.ConnChannel("c1"))
	assert.Equal(t, "rtkit:room:r1", transport.RoomSet("r1"))
}
