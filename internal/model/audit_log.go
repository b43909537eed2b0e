package model

// Audit actions.
const (
	AuditActionLogin  = "LOGIN"
	AuditActionLogout = "LOGOUT"
	AuditActionCreate = "CREATE"
	AuditActionUpdate = "UPDATE"
	AuditActionDelete = "DELETE"
	AuditActionAssign = "ASSIGN"
	AuditActionRevoke = "REVOKE"
)

// Audit statuses.
const (
	AuditStatusSuccess = "SUCCESS"
	AuditStatusFailed  = "FAILED"
)

// AuditLog records an administrative action.
type AuditLog struct {
	ID         uint64 `json:"id" gorm:"primaryKey;autoIncrement;comment:主键ID"`
	UserID     uint64 `json:"user_id" gorm:"index:idx_audit_user;comment:操作人ID"`
	Action     string `json:"action" gorm:"size:64;index:idx_audit_action;comment:操作"`
	Resource   string `json:"resource" gorm:"size:64;index:idx_audit_resource;comment:资源"`
	ResourceID string `json:"resource_id" gorm:"size:64;comment:资源ID"`
	Status     string `json:"status" gorm:"size:16;comment:状态 SUCCESS/FAILED"`
	Detail     string `json:"detail" gorm:"size:1024;comment:详情"`
	IPAddress  string `json:"ip_address" gorm:"size:64;comment:来源IP"`
	UserAgent  string `json:"user_agent" gorm:"size:255;comment:浏览器标识"`
	RequestID  string `json:"request_id" gorm:"size:64;comment:请求ID"`
	CreatedAt  int64  `json:"created_at" gorm:"autoCreateTime:milli;index:idx_audit_created;comment:创建时间(时间戳)"`
}

// TableName returns the table name for GORM.
func (l *AuditLog) TableName() string {
	return "audit_logs"
}

// AllModels returns every persistent model, for migrations.
func AllModels() []any {
	return []any{
		&User{},
		&Role{},
		&Permission{},
		&RolePermission{},
		&UserRole{},
		&AuditLog{},
	}
}
