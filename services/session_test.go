package services

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseSessionStore(t *testing.T, store SessionStore) {
	ctx := context.Background()

	files, err := store.Files(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, ok, err := store.CurrentCompany(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.AddFile(ctx, "a.pdf"))
	require.NoError(t, store.AddFile(ctx, "b.pdf"))
	files, err = store.Files(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, files)

	removed, err := store.RemoveFile(ctx, "missing.pdf")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = store.RemoveFile(ctx, "a.pdf")
	require.NoError(t, err)
	assert.True(t, removed)
	files, err = store.Files(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.pdf"}, files)

	require.NoError(t, store.ResetFiles(ctx))
	files, err = store.Files(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, store.SetCurrentCompany(ctx, "Acme"))
	company, ok, err := store.CurrentCompany(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Acme", company)
}

func TestMemorySessionStore(t *testing.T) {
	exerciseSessionStore(t, NewMemorySessionStore())
}

func TestMemorySessionStoreFilesIsACopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	require.NoError(t, store.AddFile(ctx, "a.pdf"))

	files, err := store.Files(ctx)
	require.NoError(t, err)
	files[0] = "mutated.pdf"

	files, err = store.Files(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf"}, files)
}

func TestMemorySessionStoreConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.AddFile(ctx, "f.pdf")
		}()
	}
	wg.Wait()

	files, err := store.Files(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 50)
}

func TestRedisSessionStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	prefix := "manuals-test-" + uuid.NewString()
	store := NewRedisSessionStore(rdb, prefix)
	defer rdb.Del(context.Background(), prefix+":uploaded_files", prefix+":current_company")

	exerciseSessionStore(t, store)
}
