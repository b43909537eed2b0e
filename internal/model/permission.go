package model

import (
	"time"

	"gorm.io/gorm"

	"github.com/kart-io/sentinel-iam/pkg/security/authz"
)

// Permission grants an action on a resource. The (resource, action) pair is
// unique.
type Permission struct {
	ID          uint64 `json:"id" gorm:"primaryKey;autoIncrement;comment:权限ID"`
	Name        string `json:"name" gorm:"size:64;not null;comment:权限名称"`
	Description string `json:"description" gorm:"size:255;comment:描述"`
	Resource    string `json:"resource" gorm:"size:64;not null;uniqueIndex:uk_resource_action;comment:资源"`
	Action      string `json:"action" gorm:"size:64;not null;uniqueIndex:uk_resource_action;comment:操作"`
	CreatedAt   int64  `json:"created_at" gorm:"autoCreateTime:milli;comment:创建时间"`
	UpdatedAt   int64  `json:"updated_at" gorm:"autoUpdateTime:milli;comment:更新时间"`
}

// TableName returns the table name for GORM.
func (p *Permission) TableName() string {
	return "permissions"
}

// BeforeCreate sets the CreatedAt and UpdatedAt fields.
func (p *Permission) BeforeCreate(_ *gorm.DB) (err error) {
	now := time.Now().UnixMilli()
	p.CreatedAt = now
	p.UpdatedAt = now
	return
}

// BeforeUpdate sets the UpdatedAt field.
func (p *Permission) BeforeUpdate(_ *gorm.DB) (err error) {
	p.UpdatedAt = time.Now().UnixMilli()
	return
}

// Key returns the permission as used by the policy engine.
func (p *Permission) Key() authz.Permission {
	return authz.Permission{Resource: p.Resource, Action: p.Action}
}

// RolePermission grants a permission to a role. The (role, permission) pair
// is unique.
type RolePermission struct {
	ID           uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	RoleID       uint64 `json:"role_id" gorm:"uniqueIndex:uk_role_permission;index:idx_rp_role_id;not null;comment:角色ID"`
	PermissionID uint64 `json:"permission_id" gorm:"uniqueIndex:uk_role_permission;index:idx_rp_permission_id;not null;comment:权限ID"`
	CreatedAt    int64  `json:"created_at" gorm:"autoCreateTime:milli;comment:创建时间"`
}

// TableName returns the table name for GORM.
func (rp *RolePermission) TableName() string {
	return "role_permissions"
}

// BeforeCreate sets the CreatedAt field.
func (rp *RolePermission) BeforeCreate(_ *gorm.DB) (err error) {
	rp.CreatedAt = time.Now().UnixMilli()
	return
}
