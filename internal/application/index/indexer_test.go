package index

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shifat71/350/internal/application/admin"
	"github.com/shifat71/350/internal/domain/entity"
)

type fakeSource struct {
	products []*entity.ProductCandidate
	err      error
}

func (f *fakeSource) AllProducts(_ context.Context) ([]*entity.ProductCandidate, error) {
	return f.products, f.err
}

type fakeEmbedder struct {
	err     error
	batches [][]string
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, texts)
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{float64(i), 0.5}
	}
	return out, nil
}

type fakeWriter struct {
	resetErr  error
	upsertErr error
	resets    int
	entries   []Entry
}

func (f *fakeWriter) Reset(_ context.Context) error {
	f.resets++
	return f.resetErr
}

func (f *fakeWriter) Upsert(_ context.Context, entries []Entry) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.entries = append(f.entries, entries...)
	return nil
}

type memStore struct {
	tasks map[string]*entity.IndexTask
}

func newMemStore() *memStore {
	return &memStore{tasks: map[string]*entity.IndexTask{}}
}

func (s *memStore) Save(_ context.Context, task *entity.IndexTask) error {
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*entity.IndexTask, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, admin.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) List(_ context.Context) ([]*entity.IndexTask, error) {
	out := make([]*entity.IndexTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out, nil
}

func products(n int) []*entity.ProductCandidate {
	out := make([]*entity.ProductCandidate, n)
	for i := range out {
		out[i] = &entity.ProductCandidate{
			ID:          int64(i + 1),
			Name:        "商品",
			Description: "描述",
			Price:       9.9,
		}
	}
	return out
}

func pendingTask(t *testing.T, store admin.TaskStore) string {
	t.Helper()
	task := entity.NewIndexTask("task-1", entity.TaskTypeRebuildEmbeddings)
	require.NoError(t, store.Save(context.Background(), task))
	return task.ID
}

func TestRebuilderRun(t *testing.T) {
	store := newMemStore()
	taskID := pendingTask(t, store)
	writer := &fakeWriter{}
	embedder := &fakeEmbedder{}
	r := NewRebuilder(&fakeSource{products: products(5)}, embedder, writer, store, 2)

	require.NoError(t, r.Run(context.Background(), taskID))

	// 5 个商品按批 2 嵌入：2+2+1
	assert.Len(t, embedder.batches, 3)
	assert.Equal(t, 1, writer.resets)
	require.Len(t, writer.entries, 5)
	assert.Equal(t, "1", writer.entries[0].ID)
	assert.Equal(t, []float64{0, 0.5}, writer.entries[0].Vector)

	task, err := store.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusCompleted, task.Status)
	assert.Equal(t, 5, task.ProductsIndexed)
	require.NotNil(t, task.EndTime)
}

func TestRebuilderEmptyCatalog(t *testing.T) {
	store := newMemStore()
	taskID := pendingTask(t, store)
	writer := &fakeWriter{}
	r := NewRebuilder(&fakeSource{}, &fakeEmbedder{}, writer, store, 10)

	require.NoError(t, r.Run(context.Background(), taskID))

	assert.Equal(t, 1, writer.resets)
	task, _ := store.Get(context.Background(), taskID)
	assert.Equal(t, entity.TaskStatusCompleted, task.Status)
	assert.Zero(t, task.ProductsIndexed)
}

func TestRebuilderFailureMarksTask(t *testing.T) {
	tests := []struct {
		name  string
		build func(store admin.TaskStore) *Rebuilder
	}{
		{
			"读库失败",
			func(store admin.TaskStore) *Rebuilder {
				return NewRebuilder(&fakeSource{err: errors.New("pq: down")}, &fakeEmbedder{}, &fakeWriter{}, store, 10)
			},
		},
		{
			"清空集合失败",
			func(store admin.TaskStore) *Rebuilder {
				return NewRebuilder(&fakeSource{products: products(3)}, &fakeEmbedder{},
					&fakeWriter{resetErr: errors.New("milvus: down")}, store, 10)
			},
		},
		{
			"嵌入失败",
			func(store admin.TaskStore) *Rebuilder {
				return NewRebuilder(&fakeSource{products: products(3)},
					&fakeEmbedder{err: errors.New("embedding: 429")}, &fakeWriter{}, store, 10)
			},
		},
		{
			"写入失败",
			func(store admin.TaskStore) *Rebuilder {
				return NewRebuilder(&fakeSource{products: products(3)}, &fakeEmbedder{},
					&fakeWriter{upsertErr: errors.New("milvus: quota")}, store, 10)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			taskID := pendingTask(t, store)
			r := tt.build(store)

			require.Error(t, r.Run(context.Background(), taskID))

			task, err := store.Get(context.Background(), taskID)
			require.NoError(t, err)
			assert.Equal(t, entity.TaskStatusFailed, task.Status)
			assert.NotEmpty(t, task.Error)
		})
	}
}

func TestRebuilderUnknownTask(t *testing.T) {
	r := NewRebuilder(&fakeSource{}, &fakeEmbedder{}, &fakeWriter{}, newMemStore(), 10)
	err := r.Run(context.Background(), "missing")
	require.ErrorIs(t, err, admin.ErrTaskNotFound)
}

func TestDocument(t *testing.T) {
	assert.Equal(t, "降噪耳机 40 小时续航",
		Document(&entity.ProductCandidate{Name: "降噪耳机", Description: "40 小时续航"}))
	assert.Equal(t, "降噪耳机", Document(&entity.ProductCandidate{Name: "降噪耳机"}))
}
