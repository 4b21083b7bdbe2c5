package instrumented_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/metacache/pkg/pathmeta"
	"github.com/marmos91/metacache/pkg/pathmeta/store/instrumented"
	"github.com/marmos91/metacache/pkg/pathmeta/store/memory"
	"github.com/marmos91/metacache/pkg/pathmeta/storetest"
)

// recorder is a StoreMetrics capturing observations for assertions.
type recorder struct {
	mu  sync.Mutex
	ops map[string]int
	err map[string]int
}

func newRecorder() *recorder {
	return &recorder{ops: make(map[string]int), err: make(map[string]int)}
}

func (r *recorder) ObserveOp(op string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op]++
	if err != nil {
		r.err[op]++
	}
}

func (r *recorder) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ops[op]
}

func (r *recorder) errCount(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err[op]
}

// The decorator must be semantically invisible.
func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) pathmeta.MetadataStore {
		return instrumented.Wrap(memory.New(memory.Config{}), newRecorder())
	})
}

func TestWrapNilMetrics(t *testing.T) {
	inner := memory.New(memory.Config{})
	require.Same(t, pathmeta.MetadataStore(inner), instrumented.Wrap(inner, nil))
}

func TestRecordsOperations(t *testing.T) {
	rec := newRecorder()
	ms := instrumented.Wrap(memory.New(memory.Config{}), rec)

	ctx := t.Context()
	require.NoError(t, ms.Initialize(ctx, storetest.DefaultFixture().Identity))
	t.Cleanup(func() {
		require.NoError(t, ms.Close())
	})

	require.NoError(t, ms.Put(ctx, pathmeta.PathEntry{Path: "/f1", Length: 1}))
	require.NoError(t, ms.Put(ctx, pathmeta.PathEntry{Path: "/f2", Length: 2}))
	_, err := ms.Get(ctx, "/f1")
	require.NoError(t, err)
	_, err = ms.ListChildren(ctx, "/")
	require.NoError(t, err)
	require.NoError(t, ms.Delete(ctx, "/f1"))

	require.Equal(t, 1, rec.count("initialize"))
	require.Equal(t, 2, rec.count("put"))
	require.Equal(t, 1, rec.count("get"))
	require.Equal(t, 1, rec.count("list_children"))
	require.Equal(t, 1, rec.count("delete"))
	require.Zero(t, rec.errCount("put"))

	// Failures are still observed, tagged as errors.
	require.Error(t, ms.Put(ctx, pathmeta.PathEntry{Path: "not-absolute"}))
	require.Equal(t, 3, rec.count("put"))
	require.Equal(t, 1, rec.errCount("put"))
}
