package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemory_PutGetDelete tests the basic round trip.
func TestMemory_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, found, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, m.Put(ctx, "k", []byte("v"), 0))
	got, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, m.Delete(ctx, "k"))
	_, found, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting a missing key is not an error.
	assert.NoError(t, m.Delete(ctx, "k"))
}

// TestMemory_TTLExpiry tests lazy expiry against a stepped clock.
func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	m := NewMemoryAt(func() time.Time { return now })

	require.NoError(t, m.Put(ctx, "k", []byte("v"), 10*time.Minute))

	now = now.Add(9 * time.Minute)
	_, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found, "not yet expired")

	now = now.Add(time.Minute)
	_, found, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found, "expired exactly at the deadline")
	assert.Equal(t, 0, m.Len(), "expired entry swept on read")
}

// TestMemory_ZeroTTLNeverExpires tests that ttl=0 means no expiry.
func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	m := NewMemoryAt(func() time.Time { return now })

	require.NoError(t, m.Put(ctx, "k", []byte("v"), 0))
	now = now.Add(1000 * time.Hour)

	_, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
}

// TestMemory_ValueIsolation tests that stored bytes are not aliased to the
// caller's slice in either direction.
func TestMemory_ValueIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	src := []byte("abc")
	require.NoError(t, m.Put(ctx, "k", src, 0))
	src[0] = 'z'

	got, _, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[0] = 'y'
	again, _, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

// TestKeys tests the per-operation key namespace.
func TestKeys(t *testing.T) {
	assert.Equal(t, "bulkavail:v1:op:abc:state", StateKey("abc"))
	assert.Equal(t, "bulkavail:v1:op:abc:progress", ProgressKey("abc"))
	assert.NotEqual(t, StateKey("abc"), ProgressKey("abc"))
}
