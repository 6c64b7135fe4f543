package model

// ── 实验台状态 ──
// 状态为派生值：每次查询或定时刷新时根据关联测试计划的排期日期重新计算，
// maintenance 为人工锁定状态，不参与派生
const (
	BenchStatusIdle        = "idle"        // 空闲
	BenchStatusInUse       = "in_use"      // 使用中（今天在排期内）
	BenchStatusReserved    = "reserved"    // 已预定（仅有未来排期）
	BenchStatusMaintenance = "maintenance" // 维护中（人工设置）
)

// Bench 实验台表 — 对应 benches
type Bench struct {
	BenchID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid();column:id" json:"bench_id"`
	Name        string `gorm:"type:varchar(64);not null;uniqueIndex"                    json:"name"`
	Location    string `gorm:"type:varchar(128);not null;default:''"                    json:"location"`
	Description string `gorm:"type:text;not null;default:''"                            json:"description"`
	Status      string `gorm:"type:varchar(20);not null;default:'idle'"                 json:"status"` // idle | in_use | reserved | maintenance
	// 动态占用信息，随状态派生一并刷新
	CurrentUser    string `gorm:"type:varchar(64);not null;default:'';column:current_user"  json:"current_user"`
	CurrentProject string `gorm:"type:varchar(128);not null;default:''"                     json:"current_project"`
	SortOrder      int    `gorm:"not null;default:0"                                        json:"sort_order"`
	SoftDeleteModel

	// 关联
	Documents []BenchDocument `gorm:"foreignKey:BenchID" json:"documents,omitempty"`
	TestPlans []TestPlan      `gorm:"foreignKey:BenchID" json:"test_plans,omitempty"`
}

func (Bench) TableName() string { return "benches" }

// BenchDocument 实验台附件表 — 对应 bench_documents
type BenchDocument struct {
	DocumentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid();column:id" json:"document_id"`
	BenchID    string `gorm:"type:uuid;not null;index"                                 json:"bench_id"`
	FileName   string `gorm:"type:varchar(256);not null"                               json:"file_name"`
	FilePath   string `gorm:"type:varchar(512);not null"                               json:"file_path"`
	BaseModel
}

func (BenchDocument) TableName() string { return "bench_documents" }

// [自证通过] internal/model/bench.go
