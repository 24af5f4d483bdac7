package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shifat71/350/internal/application/admin"
	"github.com/shifat71/350/internal/domain/entity"
)

var taskTracer = otel.Tracer("redis.tasks")

// taskHashKey 任务状态的共享存储键。
// API 进程写入 pending 任务，index-worker 更新执行状态。
const taskHashKey = "index:tasks"

// TaskStore 基于 Redis hash 的任务存储，实现 admin.TaskStore
type TaskStore struct {
	client *Client
}

// NewTaskStore 创建任务存储
func NewTaskStore(client *Client) *TaskStore {
	return &TaskStore{client: client}
}

var _ admin.TaskStore = (*TaskStore)(nil)

// Save 写入或覆盖任务
func (s *TaskStore) Save(ctx context.Context, task *entity.IndexTask) error {
	ctx, span := taskTracer.Start(ctx, "tasks.Save",
		trace.WithAttributes(attribute.String("task.id", task.ID)))
	defer span.End()

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	if err := s.client.rdb.HSet(ctx, taskHashKey, task.ID, data).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

// Get 按 ID 读取任务；不存在时返回 admin.ErrTaskNotFound
func (s *TaskStore) Get(ctx context.Context, id string) (*entity.IndexTask, error) {
	ctx, span := taskTracer.Start(ctx, "tasks.Get",
		trace.WithAttributes(attribute.String("task.id", id)))
	defer span.End()

	data, err := s.client.rdb.HGet(ctx, taskHashKey, id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, admin.ErrTaskNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}

	var task entity.IndexTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &task, nil
}

// List 返回全部任务
func (s *TaskStore) List(ctx context.Context) ([]*entity.IndexTask, error) {
	ctx, span := taskTracer.Start(ctx, "tasks.List")
	defer span.End()

	entries, err := s.client.rdb.HGetAll(ctx, taskHashKey).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]*entity.IndexTask, 0, len(entries))
	for id, data := range entries {
		var task entity.IndexTask
		if err := json.Unmarshal([]byte(data), &task); err != nil {
			return nil, fmt.Errorf("decode task %s: %w", id, err)
		}
		tasks = append(tasks, &task)
	}
	return tasks, nil
}
