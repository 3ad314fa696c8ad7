package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessedReturnsCopy(t *testing.T) {
	t.Parallel()

	store := NewStore("https://example.com/a")
	seen, err := store.Processed(context.Background())
	require.NoError(t, err)
	delete(seen, "https://example.com/a")

	require.NoError(t, store.MarkProcessed(context.Background(), "https://example.com/b"))
	seen, err = store.Processed(context.Background())
	require.NoError(t, err)
	require.Len(t, seen, 2)
}
