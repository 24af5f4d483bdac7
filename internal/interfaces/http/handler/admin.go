package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shifat71/350/internal/application/admin"
	"github.com/shifat71/350/internal/interfaces/http/dto"
	"github.com/shifat71/350/pkg/logger"

	apperrors "github.com/shifat71/350/pkg/errors"
)

// AdminHandler 管理接口处理器
type AdminHandler struct {
	tasks *admin.TaskManager
}

// NewAdminHandler 创建管理接口处理器
func NewAdminHandler(tasks *admin.TaskManager) *AdminHandler {
	return &AdminHandler{tasks: tasks}
}

// RebuildEmbeddings 触发向量索引全量重建
// @Summary 重建向量索引
// @Description 创建重建任务并投递到后台队列，任务异步执行
// @Tags Admin
// @Produce json
// @Success 202 {object} dto.RebuildResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /admin/rebuild-embeddings [post]
func (h *AdminHandler) RebuildEmbeddings(c *gin.Context) {
	task, err := h.tasks.TriggerRebuild(c.Request.Context())
	if err != nil {
		if errors.Is(err, admin.ErrRebuildThrottled) {
			dto.AppError(c, apperrors.New(apperrors.CodeRebuildThrottled, "a rebuild ran recently, try again later"))
			return
		}
		logger.Error(c.Request.Context(), "rebuild trigger failed", err)
		dto.AppError(c, apperrors.New(apperrors.CodeInternalError, "failed to schedule rebuild"))
		return
	}

	c.JSON(http.StatusAccepted, dto.RebuildResponse{
		TaskID:  task.ID,
		Status:  string(task.Status),
		Message: "embedding rebuild scheduled",
	})
}

// GetTask 查询任务状态
// @Summary 查询任务状态
// @Tags Admin
// @Produce json
// @Param id path string true "任务 ID"
// @Success 200 {object} entity.IndexTask
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/tasks/{id} [get]
func (h *AdminHandler) GetTask(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, admin.ErrTaskNotFound) {
			dto.NotFound(c, "task not found")
			return
		}
		logger.Error(c.Request.Context(), "task lookup failed", err, "task_id", c.Param("id"))
		dto.AppError(c, apperrors.New(apperrors.CodeInternalError, "failed to load task"))
		return
	}

	c.JSON(http.StatusOK, task)
}

// ListTasks 查询任务列表
// @Summary 查询任务列表
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.TaskListResponse
// @Router /admin/tasks [get]
func (h *AdminHandler) ListTasks(c *gin.Context) {
	tasks, err := h.tasks.List(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "task list failed", err)
		dto.AppError(c, apperrors.New(apperrors.CodeInternalError, "failed to list tasks"))
		return
	}

	c.JSON(http.StatusOK, dto.TaskListResponse{
		Tasks: tasks,
		Total: len(tasks),
	})
}
