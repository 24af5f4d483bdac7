package dto

import "github.com/shifat71/350/internal/domain/entity"

// RebuildResponse 重建任务触发响应
type RebuildResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TaskListResponse 任务列表响应
type TaskListResponse struct {
	Tasks []*entity.IndexTask `json:"tasks"`
	Total int                 `json:"total"`
}
