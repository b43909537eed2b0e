package model

import (
	"time"

	"gorm.io/gorm"
)

// Role is a named set of permissions.
type Role struct {
	ID          uint64 `json:"id" gorm:"primaryKey;autoIncrement;comment:角色ID"`
	Name        string `json:"name" gorm:"size:64;not null;uniqueIndex:uk_name;comment:角色名称"`
	Description string `json:"description" gorm:"size:255;comment:描述"`
	CreatedAt   int64  `json:"created_at" gorm:"autoCreateTime:milli;comment:创建时间"`
	UpdatedAt   int64  `json:"updated_at" gorm:"autoUpdateTime:milli;comment:更新时间"`
}

// TableName returns the table name for GORM.
func (r *Role) TableName() string {
	return "roles"
}

// BeforeCreate sets the CreatedAt and UpdatedAt fields.
func (r *Role) BeforeCreate(_ *gorm.DB) (err error) {
	now := time.Now().UnixMilli()
	r.CreatedAt = now
	r.UpdatedAt = now
	return
}

// BeforeUpdate sets the UpdatedAt field.
func (r *Role) BeforeUpdate(_ *gorm.DB) (err error) {
	r.UpdatedAt = time.Now().UnixMilli()
	return
}

// UserRole assigns a role to a user. AssignedBy is the id of the caller
// that made the assignment, 0 for system seeding.
type UserRole struct {
	ID         uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     uint64 `json:"user_id" gorm:"uniqueIndex:uk_user_role;index:idx_user_id;not null;comment:用户ID"`
	RoleID     uint64 `json:"role_id" gorm:"uniqueIndex:uk_user_role;index:idx_role_id;not null;comment:角色ID"`
	AssignedBy uint64 `json:"assigned_by" gorm:"default:0;comment:分配人"`
	CreatedAt  int64  `json:"created_at" gorm:"autoCreateTime:milli;comment:创建时间"`
}

// TableName returns the table name for GORM.
func (ur *UserRole) TableName() string {
	return "user_roles"
}

// BeforeCreate sets the CreatedAt field.
func (ur *UserRole) BeforeCreate(_ *gorm.DB) (err error) {
	ur.CreatedAt = time.Now().UnixMilli()
	return
}
