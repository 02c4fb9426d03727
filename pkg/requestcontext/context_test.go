package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessorsDefaultToZeroValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, UserAgent(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestAccessorsRoundTrip(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := WithClientMetadata(context.Background(), "10.0.0.7", "curl/8.0")
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithTime(ctx, fixed)

	assert.Equal(t, "10.0.0.7", ClientIP(ctx))
	assert.Equal(t, "curl/8.0", UserAgent(ctx))
	assert.Equal(t, "req-123", RequestID(ctx))
	assert.Equal(t, fixed, Now(ctx))
}
