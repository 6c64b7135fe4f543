package model

// ── 测试申请状态 ──
const (
	AssignmentStatusPending   = "pending"   // 待排期
	AssignmentStatusScheduled = "scheduled" // 已排期（已关联测试计划）
	AssignmentStatusCompleted = "completed" // 已完成
	AssignmentStatusCancelled = "cancelled" // 已取消
)

// Assignment 测试申请表 — 对应 assignments
// 测试申请由业务方提出，排期后关联到一条测试计划
type Assignment struct {
	AssignmentID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid();column:id" json:"assignment_id"`
	ProjectName  string  `gorm:"type:varchar(128);not null"                               json:"project_name"`
	Description  string  `gorm:"type:text;not null;default:''"                            json:"description"`
	Applicant    string  `gorm:"type:varchar(64);not null"                                json:"applicant"`
	SampleCount  int     `gorm:"not null;default:0"                                       json:"sample_count"`
	Status       string  `gorm:"type:varchar(20);not null;default:'pending'"              json:"status"` // pending | scheduled | completed | cancelled
	TestPlanID   *string `gorm:"type:uuid"                                                json:"test_plan_id,omitempty"`
	SoftDeleteModel

	// 关联
	TestPlan *TestPlan `gorm:"foreignKey:TestPlanID" json:"test_plan,omitempty"`
}

func (Assignment) TableName() string { return "assignments" }

// [自证通过] internal/model/assignment.go
