package biz

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/internal/user-center/store"
	storepkg "github.com/kart-io/sentinel-iam/pkg/store"
)

type fixture struct {
	store store.IStore
	audit *AuditService
	perms *PermissionService
	users *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := store.NewStore(db)
	require.NoError(t, s.AutoMigrate(context.Background()))

	audit := NewAuditService(s)
	perms := NewPermissionService(s, audit)
	return &fixture{
		store: s,
		audit: audit,
		perms: perms,
		users: NewUserService(s, perms, audit),
	}
}

// addUser inserts a user directly with a low-cost hash.
func (f *fixture) addUser(t *testing.T, email, password, role string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{Email: email, Password: string(hash), Role: role, Status: model.UserStatusActive}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) addRole(t *testing.T, name string) *model.Role {
	t.Helper()
	r := &model.Role{Name: name}
	require.NoError(t, f.perms.CreateRole(context.Background(), r))
	return r
}

func (f *fixture) addPermission(t *testing.T, resource, action string) *model.Permission {
	t.Helper()
	p := &model.Permission{Name: resource + " " + action, Resource: resource, Action: action}
	require.NoError(t, f.perms.CreatePermission(context.Background(), p))
	return p
}

func (f *fixture) auditCount(t *testing.T) int64 {
	t.Helper()
	total, _, err := f.store.AuditLogs().List(context.Background(), storepkg.NewWhere())
	require.NoError(t, err)
	return total
}
