// Package router binds the user-center handlers to their routes. Every route
// is tied to an operation name whose requirement is declared in Operations.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-iam/internal/user-center/handler"
	authmw "github.com/kart-io/sentinel-iam/pkg/infra/middleware/auth"
	"github.com/kart-io/sentinel-iam/pkg/security/authz"
)

// Permission keys checked by the routes.
const (
	PermUserCreate       = "user:create"
	PermUserRead         = "user:read"
	PermUserUpdate       = "user:update"
	PermUserDelete       = "user:delete"
	PermRoleManage       = "role:manage"
	PermAuditRead        = "audit:read"
	PermPermissionManage = "permission:manage"
)

const (
	roleAdmin     = "admin"
	roleModerator = "moderator"
)

// Operations returns the requirement of every routed operation.
func Operations() map[string]authz.Requirement {
	perms := func(p ...string) []string { return p }
	roles := func(r ...string) []string { return r }

	adminRole := authz.Requirement{Roles: roles(roleAdmin), Permissions: perms(PermRoleManage)}
	adminPermission := authz.Requirement{Roles: roles(roleAdmin), Permissions: perms(PermPermissionManage)}
	readRole := authz.Requirement{Permissions: perms(PermRoleManage)}

	return map[string]authz.Requirement{
		"health.check": authz.Public(),

		"auth.login":   authz.Public(),
		"auth.refresh": authz.Public(),
		"auth.logout":  authz.Authenticated(),
		"auth.me":      authz.Authenticated(),

		"user.create":         {Permissions: perms(PermUserCreate)},
		"user.list":           {Roles: roles(roleAdmin, roleModerator), Permissions: perms(PermUserRead)},
		"user.get":            {Permissions: perms(PermUserRead)},
		"user.update":         {Roles: roles(roleAdmin), Permissions: perms(PermUserUpdate)},
		"user.delete":         {Roles: roles(roleAdmin), Permissions: perms(PermUserDelete)},
		"user.roles":          {Permissions: perms(PermRoleManage)},
		"user.assign-role":    adminRole,
		"user.remove-role":    adminRole,
		"user.permissions":    {Permissions: perms(PermPermissionManage)},
		"user.has-permission": {Permissions: perms(PermPermissionManage)},

		"permission.list":        adminPermission,
		"permission.get":         adminPermission,
		"permission.get-by-name": adminPermission,
		"permission.create":      adminPermission,
		"permission.update":      adminPermission,
		"permission.delete":      adminPermission,

		"role.list":              readRole,
		"role.get":               readRole,
		"role.get-by-name":       readRole,
		"role.create":            adminRole,
		"role.update":            adminRole,
		"role.delete":            adminRole,
		"role.permissions":       adminRole,
		"role.assign-permission": adminRole,
		"role.set-permissions":   adminRole,
		"role.remove-permission": adminRole,

		"audit.list": {Permissions: perms(PermAuditRead)},
	}
}

// NewRegistry returns a registry holding Operations.
func NewRegistry() *authz.Registry {
	reg := authz.NewRegistry()
	for op, req := range Operations() {
		reg.MustRegister(op, req)
	}
	return reg
}

// Handlers groups the handlers served by the router.
type Handlers struct {
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Role       *handler.RoleHandler
	Permission *handler.PermissionHandler
	Audit      *handler.AuditHandler
	Health     *handler.HealthHandler
}

// Register mounts every route on r behind the guard.
func Register(r gin.IRouter, guard authmw.Authorizer, h *Handlers) {
	op := func(name string) gin.HandlerFunc { return authmw.Authorize(guard, name) }

	r.GET("/healthz", op("health.check"), h.Health.Check)

	v1 := r.Group("/v1")

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/login", op("auth.login"), h.Auth.Login)
		authGroup.POST("/refresh", op("auth.refresh"), h.Auth.Refresh)
		authGroup.POST("/logout", op("auth.logout"), h.Auth.Logout)
		authGroup.GET("/me", op("auth.me"), h.Auth.Me)
	}

	users := v1.Group("/users")
	{
		users.POST("", op("user.create"), h.User.Create)
		users.GET("", op("user.list"), h.User.List)
		users.GET("/:id", op("user.get"), h.User.Get)
		users.PUT("/:id/role", op("user.update"), h.User.UpdateRole)
		users.DELETE("/:id", op("user.delete"), h.User.Delete)
		users.GET("/:id/roles", op("user.roles"), h.User.Roles)
		users.POST("/:id/roles", op("user.assign-role"), h.User.AssignRole)
		users.DELETE("/:id/roles/:roleId", op("user.remove-role"), h.User.RemoveRole)
		users.GET("/:id/permissions", op("user.permissions"), h.User.Permissions)
		users.GET("/:id/permissions/check", op("user.has-permission"), h.User.HasPermission)
	}

	permissions := v1.Group("/permissions")
	{
		permissions.GET("", op("permission.list"), h.Permission.List)
		permissions.POST("", op("permission.create"), h.Permission.Create)
		permissions.GET("/name/:name", op("permission.get-by-name"), h.Permission.GetByName)
		permissions.GET("/:id", op("permission.get"), h.Permission.Get)
		permissions.PUT("/:id", op("permission.update"), h.Permission.Update)
		permissions.DELETE("/:id", op("permission.delete"), h.Permission.Delete)
	}

	roles := v1.Group("/roles")
	{
		roles.GET("", op("role.list"), h.Role.List)
		roles.POST("", op("role.create"), h.Role.Create)
		roles.GET("/name/:name", op("role.get-by-name"), h.Role.GetByName)
		roles.GET("/:id", op("role.get"), h.Role.Get)
		roles.PUT("/:id", op("role.update"), h.Role.Update)
		roles.DELETE("/:id", op("role.delete"), h.Role.Delete)
		roles.GET("/:id/permissions", op("role.permissions"), h.Role.Permissions)
		roles.POST("/:id/permissions", op("role.assign-permission"), h.Role.AssignPermission)
		roles.PUT("/:id/permissions", op("role.set-permissions"), h.Role.SetPermissions)
		roles.DELETE("/:id/permissions/:permissionId", op("role.remove-permission"), h.Role.RemovePermission)
	}

	v1.GET("/audit-logs", op("audit.list"), h.Audit.List)

	logger.Infow("HTTP routes registered", "operations", len(Operations()))
}
