package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shifat71/350/internal/application/admin"
	"github.com/shifat71/350/internal/domain/entity"
	"github.com/shifat71/350/internal/interfaces/http/dto"
)

type memTaskStore struct {
	tasks map[string]*entity.IndexTask
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: map[string]*entity.IndexTask{}}
}

func (s *memTaskStore) Save(_ context.Context, task *entity.IndexTask) error {
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *memTaskStore) Get(_ context.Context, id string) (*entity.IndexTask, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, admin.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *memTaskStore) List(_ context.Context) ([]*entity.IndexTask, error) {
	out := make([]*entity.IndexTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		copied := *task
		out = append(out, &copied)
	}
	return out, nil
}

type noopPublisher struct{}

func (noopPublisher) PublishRebuild(context.Context, string) error { return nil }

func adminTestRouter(store admin.TaskStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	manager := admin.NewTaskManager(store, noopPublisher{}, time.Hour)
	h := NewAdminHandler(manager)

	r := gin.New()
	r.POST("/admin/rebuild-embeddings", h.RebuildEmbeddings)
	r.GET("/admin/tasks", h.ListTasks)
	r.GET("/admin/tasks/:id", h.GetTask)
	return r
}

func TestRebuildEmbeddingsAccepted(t *testing.T) {
	store := newMemTaskStore()
	r := adminTestRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/rebuild-embeddings", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp dto.RebuildResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, string(entity.TaskStatusPending), resp.Status)

	_, err := store.Get(context.Background(), resp.TaskID)
	assert.NoError(t, err)
}

func TestRebuildEmbeddingsThrottled(t *testing.T) {
	r := adminTestRouter(newMemTaskStore())

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/admin/rebuild-embeddings", nil))
	require.Equal(t, http.StatusAccepted, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/admin/rebuild-embeddings", nil))
	require.Equal(t, http.StatusConflict, second.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "4006", resp.Code)
}

func TestGetTaskNotFound(t *testing.T) {
	r := adminTestRouter(newMemTaskStore())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/tasks/nope", nil))

	require.Equal(t, http.StatusNotFound, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1004", resp.Code)
}

func TestListTasks(t *testing.T) {
	store := newMemTaskStore()
	r := adminTestRouter(store)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/admin/rebuild-embeddings", nil))
	require.Equal(t, http.StatusAccepted, first.Code)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/tasks", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.TaskListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, entity.TaskStatusPending, resp.Tasks[0].Status)
}
