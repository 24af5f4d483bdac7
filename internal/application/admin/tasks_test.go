package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shifat71/350/internal/domain/entity"
)

type fakeStore struct {
	tasks   map[string]*entity.IndexTask
	saveErr error
	listErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: map[string]*entity.IndexTask{}}
}

func (f *fakeStore) Save(_ context.Context, task *entity.IndexTask) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*entity.IndexTask, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

func (f *fakeStore) List(_ context.Context) ([]*entity.IndexTask, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*entity.IndexTask, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}

type fakePublisher struct {
	err    error
	calls  int
	gotIDs []string
}

func (f *fakePublisher) PublishRebuild(_ context.Context, taskID string) error {
	f.calls++
	f.gotIDs = append(f.gotIDs, taskID)
	return f.err
}

func TestTriggerRebuild(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	m := NewTaskManager(store, pub, time.Hour)

	task, err := m.TriggerRebuild(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, entity.TaskTypeRebuildEmbeddings, task.Type)
	assert.Equal(t, entity.TaskStatusPending, task.Status)
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, []string{task.ID}, pub.gotIDs)

	saved, err := m.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusPending, saved.Status)
}

func TestTriggerRebuildThrottled(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	m := NewTaskManager(store, pub, time.Hour)

	_, err := m.TriggerRebuild(context.Background())
	require.NoError(t, err)

	_, err = m.TriggerRebuild(context.Background())
	require.ErrorIs(t, err, ErrRebuildThrottled)
	assert.Equal(t, 1, pub.calls)
}

func TestTriggerRebuildAfterFailureNotThrottled(t *testing.T) {
	store := newFakeStore()
	failed := entity.NewIndexTask("t-failed", entity.TaskTypeRebuildEmbeddings)
	failed.Fail("milvus unavailable")
	require.NoError(t, store.Save(context.Background(), failed))

	m := NewTaskManager(store, &fakePublisher{}, time.Hour)

	task, err := m.TriggerRebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusPending, task.Status)
}

func TestTriggerRebuildAfterIntervalElapsed(t *testing.T) {
	store := newFakeStore()
	old := entity.NewIndexTask("t-old", entity.TaskTypeRebuildEmbeddings)
	old.StartTime = time.Now().Add(-2 * time.Hour)
	old.Complete(100)
	require.NoError(t, store.Save(context.Background(), old))

	m := NewTaskManager(store, &fakePublisher{}, time.Hour)

	_, err := m.TriggerRebuild(context.Background())
	require.NoError(t, err)
}

func TestTriggerRebuildPublishFailure(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{err: errors.New("stream full")}
	m := NewTaskManager(store, pub, time.Hour)

	_, err := m.TriggerRebuild(context.Background())
	require.Error(t, err)

	// 任务以 failed 落库，且不占冷却期
	tasks, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, entity.TaskStatusFailed, tasks[0].Status)

	pub.err = nil
	_, err = m.TriggerRebuild(context.Background())
	require.NoError(t, err)
}

func TestListOrdering(t *testing.T) {
	store := newFakeStore()
	for i, id := range []string{"a", "b", "c"} {
		task := entity.NewIndexTask(id, entity.TaskTypeRebuildEmbeddings)
		task.StartTime = time.Now().Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Save(context.Background(), task))
	}

	m := NewTaskManager(store, &fakePublisher{}, time.Hour)
	tasks, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "c", tasks[0].ID)
	assert.Equal(t, "a", tasks[2].ID)
}

func TestGetUnknownTask(t *testing.T) {
	m := NewTaskManager(newFakeStore(), &fakePublisher{}, time.Hour)
	_, err := m.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrTaskNotFound)
}
