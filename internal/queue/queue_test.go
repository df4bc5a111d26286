package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_SendChunksAndDrains(t *testing.T) {
	q := NewMemoryQueue()
	msgs := make([]Message, 23)
	for i := range msgs {
		msgs[i] = Message{Key: "k", Value: []byte("v")}
	}
	require.NoError(t, q.Send(context.Background(), "batches", msgs...))

	drained := q.Drain("batches")
	require.Len(t, drained, 23)
	require.Empty(t, q.Drain("batches"))
}

func TestMemoryQueue_SendAfterCloseFails(t *testing.T) {
	q := NewMemoryQueue()
	require.NoError(t, q.Close())
	err := q.Send(context.Background(), "batches", Message{Key: "k"})
	require.ErrorIs(t, err, ErrClosed)
}

func TestMemoryDedupeStore_SeenOnce(t *testing.T) {
	store := NewMemoryDedupeStore()
	ctx := context.Background()

	seen, err := store.SeenRecently(ctx, "batch-1")
	require.NoError(t, err)
	require.False(t, seen)

	seen, err = store.SeenRecently(ctx, "batch-1")
	require.NoError(t, err)
	require.True(t, seen)
}
