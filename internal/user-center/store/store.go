// Package store implements the persistence of users, roles, permissions,
// their assignments and the audit log on top of gorm.
package store

import (
	"context"
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/pkg/errors"
)

// IStore is the entry point of the storage layer.
type IStore interface {
	// DB returns the transaction bound to ctx, or the root handle.
	DB(ctx context.Context) *gorm.DB
	// TX runs fn in a transaction. Stores called with the ctx passed to fn
	// join the transaction.
	TX(ctx context.Context, fn func(ctx context.Context) error) error

	Users() UserStore
	Roles() RoleStore
	Permissions() PermissionStore
	RolePermissions() RolePermissionStore
	UserRoles() UserRoleStore
	AuditLogs() AuditLogStore

	// AutoMigrate creates or updates every table.
	AutoMigrate(ctx context.Context) error
}

type transactionKey struct{}

// datastore implements IStore.
type datastore struct {
	core *gorm.DB
}

var _ IStore = (*datastore)(nil)

// NewStore creates an IStore over db.
func NewStore(db *gorm.DB) IStore {
	return &datastore{core: db}
}

func (ds *datastore) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(transactionKey{}).(*gorm.DB); ok {
		return tx
	}
	return ds.core.WithContext(ctx)
}

func (ds *datastore) TX(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested calls join the outer transaction.
	if _, ok := ctx.Value(transactionKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return ds.core.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, transactionKey{}, tx))
	})
}

func (ds *datastore) Users() UserStore                     { return newUsers(ds) }
func (ds *datastore) Roles() RoleStore                     { return newRoles(ds) }
func (ds *datastore) Permissions() PermissionStore         { return newPermissions(ds) }
func (ds *datastore) RolePermissions() RolePermissionStore { return newRolePermissions(ds) }
func (ds *datastore) UserRoles() UserRoleStore             { return newUserRoles(ds) }
func (ds *datastore) AuditLogs() AuditLogStore             { return newAuditLogs(ds) }

func (ds *datastore) AutoMigrate(ctx context.Context) error {
	if err := ds.core.WithContext(ctx).AutoMigrate(model.AllModels()...); err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	return nil
}

// isDuplicate reports a unique constraint violation. gorm translates it to
// ErrDuplicatedKey when the dialect supports it; the message checks cover
// drivers opened without error translation.
func isDuplicate(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

// translate maps gorm errors onto errnos. notFound and conflict may be nil.
func translate(err error, notFound, conflict *errors.Errno) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && stderrors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case conflict != nil && isDuplicate(err):
		return conflict.WithCause(err)
	default:
		return errors.ErrDatabase.WithCause(err)
	}
}
