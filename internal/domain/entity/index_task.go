// Package entity 定义领域实体
package entity

import (
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// TaskType 任务类型
type TaskType string

const (
	TaskTypeRebuildEmbeddings TaskType = "rebuild_embeddings"
)

// IndexTask 索引维护任务
type IndexTask struct {
	ID              string     `json:"task_id"`
	Type            TaskType   `json:"task_type"`
	Status          TaskStatus `json:"status"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Error           string     `json:"error,omitempty"`
	ProductsIndexed int        `json:"products_indexed,omitempty"`
}

// NewIndexTask 创建新任务
func NewIndexTask(id string, taskType TaskType) *IndexTask {
	return &IndexTask{
		ID:        id,
		Type:      taskType,
		Status:    TaskStatusPending,
		StartTime: time.Now(),
	}
}

// Start 标记任务开始执行
func (t *IndexTask) Start() {
	t.Status = TaskStatusRunning
}

// Complete 标记任务完成
func (t *IndexTask) Complete(indexed int) {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.ProductsIndexed = indexed
	t.EndTime = &now
}

// Fail 标记任务失败
func (t *IndexTask) Fail(errMsg string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.Error = errMsg
	t.EndTime = &now
}

// Done 任务是否已结束
func (t *IndexTask) Done() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}
