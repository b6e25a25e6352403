package artifact

import (
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/researchcrew/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertions)
var _ core.ArtifactStore = (*InMemoryStore)(nil)

func TestInMemoryStore_SaveGetIsolation(t *testing.T) {
	store := NewInMemoryStore()
	data := []byte("hello")
	require.NoError(t, store.Save("s1", "report.md", data))

	data[0] = 'H'
	out, err := store.Get("s1", "report.md")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	out[0] = 'x'
	out2, _ := store.Get("s1", "report.md")
	assert.Equal(t, "hello", string(out2))
}

func TestInMemoryStore_ListAndDelete(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Save("s1", "topic.txt", []byte("1")))
	require.NoError(t, store.Save("s1", "report.md", []byte("2")))

	ids, err := store.List("s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"report.md", "topic.txt"}, ids)

	require.NoError(t, store.Delete("s1", "report.md"))
	_, err = store.Get("s1", "report.md")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete("s1", "report.md"), ErrNotFound)
	assert.ErrorIs(t, store.Delete("nope", "x"), ErrNotFound)

	ids, _ = store.List("s1")
	assert.Equal(t, []string{"topic.txt"}, ids)

	ids, _ = store.List("unknown")
	assert.Empty(t, ids)
}

func TestInMemoryStore_Concurrency(t *testing.T) {
	store := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Save("s1", fmt.Sprintf("a%d", i%10), []byte("data")))
			_, _ = store.List("s1")
		}(i)
	}
	wg.Wait()
	ids, err := store.List("s1")
	require.NoError(t, err)
	assert.Len(t, ids, 10)
}
