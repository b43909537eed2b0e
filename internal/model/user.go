package model

import (
	"time"

	"gorm.io/gorm"
)

// User statuses.
const (
	UserStatusDisabled = 0
	UserStatusActive   = 1
)

// User represents the user model in the database.
type User struct {
	ID        uint64         `json:"id" gorm:"primaryKey;autoIncrement;comment:用户ID"`
	Email     string         `json:"email" gorm:"size:128;not null;uniqueIndex:uk_email;comment:邮箱"`
	Password  string         `json:"-" gorm:"size:255;not null;comment:密码Hash"`
	Mobile    string         `json:"mobile" gorm:"size:20;index:idx_mobile;comment:手机号"`
	Role      string         `json:"role" gorm:"size:32;not null;default:user;comment:主角色"`
	ProfileID string         `json:"profile_id" gorm:"size:64;comment:档案ID"`
	Status    int            `json:"status" gorm:"default:1;index:idx_status;comment:状态 1启用 0禁用"`
	CreatedAt int64          `json:"created_at" gorm:"autoCreateTime:milli;comment:创建时间(时间戳)"`
	UpdatedAt int64          `json:"updated_at" gorm:"autoUpdateTime:milli;comment:更新时间(时间戳)"`
	CreatedBy uint64         `json:"created_by" gorm:"default:0;comment:创建人"`
	UpdatedBy uint64         `json:"updated_by" gorm:"default:0;comment:更新人"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index;comment:软删除时间"`
}

// TableName returns the table name for GORM.
func (u *User) TableName() string {
	return "users"
}

// BeforeCreate sets the CreatedAt and UpdatedAt fields.
func (u *User) BeforeCreate(_ *gorm.DB) (err error) {
	now := time.Now().UnixMilli()
	u.CreatedAt = now
	u.UpdatedAt = now
	return
}

// BeforeUpdate sets the UpdatedAt field.
func (u *User) BeforeUpdate(_ *gorm.DB) (err error) {
	u.UpdatedAt = time.Now().UnixMilli()
	return
}

// Active reports whether the account may sign in.
func (u *User) Active() bool {
	return u.Status == UserStatusActive
}
