package dto

// ── 报告审批模块 DTO ──

// CreateReportRequest 创建报告请求（报告编号由服务端分配）
type CreateReportRequest struct {
	Title          string  `json:"title"            binding:"required,min=1,max=256"`
	AssignmentID   *string `json:"assignment_id"    binding:"omitempty,uuid"`
	ReportFilePath string  `json:"report_file_path" binding:"omitempty,max=512"`
	Summary        string  `json:"summary"          binding:"omitempty,max=1000"`
	Notes          string  `json:"notes"            binding:"omitempty,max=1000"`
}

// UpdateReportRequest 编辑报告请求（仅草稿态允许）
type UpdateReportRequest struct {
	Title          *string `json:"title"            binding:"omitempty,min=1,max=256"`
	AssignmentID   *string `json:"assignment_id"    binding:"omitempty,uuid"`
	ReportFilePath *string `json:"report_file_path" binding:"omitempty,max=512"`
	Summary        *string `json:"summary"          binding:"omitempty,max=1000"`
	Notes          *string `json:"notes"            binding:"omitempty,max=1000"`
}

// SubmitReportRequest 提交审核请求
type SubmitReportRequest struct {
	Reviewer string `json:"reviewer" binding:"required,min=2,max=64"`
}

// ReviewReportRequest 审核请求
type ReviewReportRequest struct {
	Approve  bool   `json:"approve"`
	Comment  string `json:"comment"  binding:"omitempty,max=500"`
	Approver string `json:"approver" binding:"omitempty,max=64"` // 审核通过时指定批准人
}

// ApproveReportRequest 批准请求
type ApproveReportRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment" binding:"omitempty,max=500"`
}

// ReportListRequest 报告列表查询参数
type ReportListRequest struct {
	Status  string `form:"status"  binding:"omitempty,oneof=draft pending_review review_approved review_rejected pending_approval approved approval_rejected"`
	Keyword string `form:"keyword" binding:"omitempty,max=64"`
	PaginationRequest
}

// ── 响应 ──

// ReportResponse 报告审批响应
type ReportResponse struct {
	ID              string  `json:"id"`
	ReportNumber    string  `json:"report_number"`
	Title           string  `json:"title"`
	Status          string  `json:"status"`
	Submitter       string  `json:"submitter"`
	Reviewer        string  `json:"reviewer,omitempty"`
	Approver        string  `json:"approver,omitempty"`
	AssignmentID    *string `json:"assignment_id,omitempty"`
	ReportFilePath  string  `json:"report_file_path,omitempty"`
	Summary         string  `json:"summary,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	SubmittedAt     *string `json:"submitted_at,omitempty"`
	ReviewedAt      *string `json:"reviewed_at,omitempty"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
	ReviewComment   string  `json:"review_comment,omitempty"`
	ApprovalComment string  `json:"approval_comment,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// [自证通过] internal/dto/report.go
