package dto

// ── 实验台模块 DTO ──

// CreateBenchRequest 创建实验台请求
type CreateBenchRequest struct {
	Name        string `json:"name"        binding:"required,min=1,max=64"`
	Location    string `json:"location"    binding:"omitempty,max=128"`
	Description string `json:"description" binding:"omitempty,max=2000"`
	SortOrder   int    `json:"sort_order"  binding:"omitempty,min=0"`
}

// UpdateBenchRequest 更新实验台请求（nil 字段不修改）
type UpdateBenchRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=1,max=64"`
	Location    *string `json:"location"    binding:"omitempty,max=128"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	SortOrder   *int    `json:"sort_order"  binding:"omitempty,min=0"`
}

// SetBenchMaintenanceRequest 设置/解除维护状态请求
type SetBenchMaintenanceRequest struct {
	Maintenance bool `json:"maintenance"`
}

// AddBenchDocumentRequest 登记实验台附件请求
type AddBenchDocumentRequest struct {
	FileName string `json:"file_name" binding:"required,min=1,max=255"`
	FilePath string `json:"file_path" binding:"required,min=1,max=512"`
}

// BenchListRequest 实验台列表查询参数
type BenchListRequest struct {
	Status  string `form:"status"  binding:"omitempty,oneof=idle in_use reserved maintenance"`
	Keyword string `form:"keyword" binding:"omitempty,max=64"`
	PaginationRequest
}

// ── 响应 ──

// BenchResponse 实验台响应
type BenchResponse struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	Location       string                  `json:"location"`
	Description    string                  `json:"description"`
	Status         string                  `json:"status"`
	CurrentUser    string                  `json:"current_user"`
	CurrentProject string                  `json:"current_project"`
	ScheduleText   string                  `json:"schedule_text"` // 排期日期的区间压缩文本，如 "06/01–03, 06/05"
	SortOrder      int                     `json:"sort_order"`
	Documents      []BenchDocumentResponse `json:"documents,omitempty"`
	CreatedAt      string                  `json:"created_at"`
	UpdatedAt      string                  `json:"updated_at"`
}

// BenchDocumentResponse 实验台附件响应
type BenchDocumentResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	FilePath  string `json:"file_path"`
	CreatedAt string `json:"created_at"`
}

// BenchBrief 实验台简要信息
type BenchBrief struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

// [自证通过] internal/dto/bench.go
