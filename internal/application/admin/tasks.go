// Package admin 索引维护任务的触发与状态查询
package admin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shifat71/350/internal/domain/entity"
	"github.com/shifat71/350/pkg/logger"
	"github.com/shifat71/350/pkg/metrics"
)

var (
	// ErrTaskNotFound 任务不存在
	ErrTaskNotFound = errors.New("index task not found")

	// ErrRebuildThrottled 距上次重建太近，本次触发被拒绝
	ErrRebuildThrottled = errors.New("rebuild triggered too soon after the previous one")
)

// TaskStore 任务状态的共享存储（API 进程写入、worker 进程更新）
type TaskStore interface {
	Save(ctx context.Context, task *entity.IndexTask) error
	Get(ctx context.Context, id string) (*entity.IndexTask, error)
	List(ctx context.Context) ([]*entity.IndexTask, error)
}

// JobPublisher 把重建任务投递给 worker
type JobPublisher interface {
	PublishRebuild(ctx context.Context, taskID string) error
}

// TaskManager 管理嵌入重建任务的生命周期
type TaskManager struct {
	store     TaskStore
	publisher JobPublisher

	minInterval time.Duration
	mu          sync.Mutex
}

// NewTaskManager 创建任务管理器
func NewTaskManager(store TaskStore, publisher JobPublisher, minInterval time.Duration) *TaskManager {
	if minInterval <= 0 {
		minInterval = time.Hour
	}
	return &TaskManager{store: store, publisher: publisher, minInterval: minInterval}
}

// TriggerRebuild 触发一次全量嵌入重建。
// 最近一次未失败的重建还在冷却期内时返回 ErrRebuildThrottled；
// 投递失败时任务以 failed 状态落库，调用方拿到投递错误。
func (m *TaskManager) TriggerRebuild(ctx context.Context) (*entity.IndexTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkThrottle(ctx); err != nil {
		return nil, err
	}

	task := entity.NewIndexTask(uuid.NewString(), entity.TaskTypeRebuildEmbeddings)
	if err := m.store.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	if err := m.publisher.PublishRebuild(ctx, task.ID); err != nil {
		task.Fail(fmt.Sprintf("publish rebuild job: %v", err))
		if saveErr := m.store.Save(ctx, task); saveErr != nil {
			logger.Error(ctx, "failed to persist task failure", saveErr, "task_id", task.ID)
		}
		metrics.IndexRebuildTotal.WithLabelValues("publish_failed").Inc()
		return nil, fmt.Errorf("publish rebuild job: %w", err)
	}

	logger.Info(ctx, "rebuild task published", "task_id", task.ID)
	metrics.IndexRebuildTotal.WithLabelValues("triggered").Inc()
	return task, nil
}

// checkThrottle 冷却期校验：最近一次未失败任务在 minInterval 内则拒绝
func (m *TaskManager) checkThrottle(ctx context.Context) error {
	tasks, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	var latest *entity.IndexTask
	for _, t := range tasks {
		if t.Type != entity.TaskTypeRebuildEmbeddings {
			continue
		}
		if latest == nil || t.StartTime.After(latest.StartTime) {
			latest = t
		}
	}
	if latest == nil {
		return nil
	}

	// 失败的任务不占冷却期，允许立即重试
	if latest.Status == entity.TaskStatusFailed {
		return nil
	}
	if since := time.Since(latest.StartTime); since < m.minInterval {
		return fmt.Errorf("%w: last rebuild %s ago, minimum interval %s",
			ErrRebuildThrottled, since.Round(time.Second), m.minInterval)
	}
	return nil
}

// Get 返回指定任务
func (m *TaskManager) Get(ctx context.Context, id string) (*entity.IndexTask, error) {
	return m.store.Get(ctx, id)
}

// List 返回全部任务，按创建时间倒序
func (m *TaskManager) List(ctx context.Context) ([]*entity.IndexTask, error) {
	tasks, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].StartTime.After(tasks[j].StartTime)
	})
	return tasks, nil
}
