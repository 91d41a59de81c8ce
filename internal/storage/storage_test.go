package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/brochure/internal/types"
)

func testObjects() []Object {
	var objs []Object
	for _, v := range types.AllVariants {
		objs = append(objs, Object{Variant: v, Data: []byte("jpeg-" + string(v)), ContentType: "image/jpeg"})
	}
	return objs
}

func TestCacheKeyObjectPath(t *testing.T) {
	key := CacheKey{Hash: "abc", Page: 7}
	assert.Equal(t, "abc/page_0007_thumbnail.jpg", key.ObjectPath(types.VariantThumbnail))
	assert.Equal(t, "abc/0007", key.String())
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("writes all variants", func(t *testing.T) {
		root := t.TempDir()
		store, err := NewLocalStore(root, "https://cdn.example.com/")
		require.NoError(t, err)

		set, err := store.UploadWithVariants(ctx, CacheKey{Hash: "h1", Page: 3}, testObjects())
		require.NoError(t, err)
		assert.True(t, set.Complete())
		assert.Equal(t, "https://cdn.example.com/h1/page_0003_large.jpg", set.Large)

		data, err := os.ReadFile(filepath.Join(root, "h1", "page_0003_medium.jpg"))
		require.NoError(t, err)
		assert.Equal(t, "jpeg-medium", string(data))
	})

	t.Run("repeat upload returns same urls", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir(), "")
		require.NoError(t, err)
		key := CacheKey{Hash: "h2", Page: 1}

		first, err := store.UploadWithVariants(ctx, key, testObjects())
		require.NoError(t, err)
		second, err := store.UploadWithVariants(ctx, key, testObjects())
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.True(t, strings.HasPrefix(first.Original, "file://"))
	})

	t.Run("missing variant rejected", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir(), "")
		require.NoError(t, err)
		objs := testObjects()[:3]
		_, err = store.UploadWithVariants(ctx, CacheKey{Hash: "h3", Page: 1}, objs)
		assert.Error(t, err)
	})

	t.Run("concurrent writers of one key", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir(), "")
		require.NoError(t, err)
		key := CacheKey{Hash: "h4", Page: 2}

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = store.UploadWithVariants(ctx, key, testObjects())
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			assert.NoError(t, err)
		}
	})
}

func completeSet(prefix string) types.VariantSet {
	var set types.VariantSet
	for _, v := range types.AllVariants {
		set.Set(v, prefix+"/"+string(v))
	}
	return set
}

func testIndex(t *testing.T, newIndex func(t *testing.T) Index) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		idx := newIndex(t)
		_, err := idx.Get(ctx, CacheKey{Hash: "x", Page: 1})
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("put then get and list", func(t *testing.T) {
		idx := newIndex(t)
		require.NoError(t, idx.Put(ctx, CacheKey{Hash: "x", Page: 2}, completeSet("p2")))
		require.NoError(t, idx.Put(ctx, CacheKey{Hash: "x", Page: 1}, completeSet("p1")))
		require.NoError(t, idx.Put(ctx, CacheKey{Hash: "y", Page: 1}, completeSet("y1")))

		got, err := idx.Get(ctx, CacheKey{Hash: "x", Page: 2})
		require.NoError(t, err)
		assert.Equal(t, "p2/large", got.Large)

		entries, err := idx.List(ctx, "x")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, 1, entries[0].Page)
		assert.Equal(t, 2, entries[1].Page)
	})

	t.Run("incomplete set rejected", func(t *testing.T) {
		idx := newIndex(t)
		err := idx.Put(ctx, CacheKey{Hash: "x", Page: 1}, types.VariantSet{Original: "o"})
		assert.Error(t, err)
	})
}

func TestMemoryIndex(t *testing.T) {
	testIndex(t, func(t *testing.T) Index { return NewMemoryIndex() })
}

func TestBadgerIndex(t *testing.T) {
	testIndex(t, func(t *testing.T) Index {
		db, err := OpenDB(filepath.Join(t.TempDir(), "index"), nil)
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		return NewBadgerIndex(db)
	})
}

type countingStore struct {
	mu    sync.Mutex
	calls int
}

func (s *countingStore) UploadWithVariants(ctx context.Context, key CacheKey, objects []Object) (types.VariantSet, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return completeSet(key.String()), nil
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{}
	cached := NewCachedStore(inner, NewMemoryIndex())
	key := CacheKey{Hash: "abc", Page: 4}

	_, err := cached.Lookup(ctx, key)
	assert.True(t, errors.Is(err, ErrNotFound))

	first, err := cached.UploadWithVariants(ctx, key, testObjects())
	require.NoError(t, err)
	second, err := cached.UploadWithVariants(ctx, key, testObjects())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	hit, err := cached.Lookup(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first, hit)
}
