package consultations

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSubmissionLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lock := NewRedisSubmissionLock(client, 30*time.Second)
	ctx := context.Background()
	key := SubmissionKey("Asha@Example.com ", "2025-06-11", "10:30")
	assert.Equal(t, "asha@example.com|2025-06-11|10:30", key)

	ok, err := lock.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, mr.TTL("consultations:submit:"+key))

	ok, err = lock.Acquire(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire while held")

	require.NoError(t, lock.Release(ctx, key))
	ok, err = lock.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(31 * time.Second)
	ok, err = lock.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok, "lock expires on its own")
}

func TestRedisSubmissionLockUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err = NewRedisSubmissionLock(client, 0).Acquire(context.Background(), "k")
	assert.Error(t, err)
}

func TestMemorySubmissionLock(t *testing.T) {
	lock := NewMemorySubmissionLock(time.Minute)
	ctx := context.Background()

	ok, _ := lock.Acquire(ctx, "k")
	assert.True(t, ok)
	ok, _ = lock.Acquire(ctx, "k")
	assert.False(t, ok)
	require.NoError(t, lock.Release(ctx, "k"))
	ok, _ = lock.Acquire(ctx, "k")
	assert.True(t, ok)
}

func TestLookupPackage(t *testing.T) {
	p, ok := LookupPackage("30-min")
	assert.True(t, ok)
	assert.Equal(t, 1000, p.PriceAmount)
	assert.Equal(t, "30-Minute Quick Consultation", p.Title)

	p, ok = LookupPackage("60")
	assert.True(t, ok)
	assert.Equal(t, "60-min", p.Key)
	assert.Len(t, p.Features, 5)

	p, ok = LookupPackage("weekend")
	assert.False(t, ok)
	assert.Equal(t, "45-min", p.Key)
	assert.Equal(t, "₹1,500", p.Price)

	all := Packages()
	require.Len(t, all, 3)
	all[0].Title = "changed"
	assert.Equal(t, "30-Minute Quick Consultation", Packages()[0].Title)
}
