package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// ============================================================================
// Identity (Category: 02)
// ============================================================================

var (
	// ErrMissingToken indicates no bearer credential was presented.
	ErrMissingToken = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryAuth, 0),
		HTTP:      http.StatusUnauthorized,
		GRPCCode:  codes.Unauthenticated,
		MessageEN: "Missing bearer token",
		MessageZH: "缺少访问令牌",
	})

	// ErrPrincipalNotFound indicates the token subject no longer maps to an active user.
	ErrPrincipalNotFound = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryAuth, 1),
		HTTP:      http.StatusUnauthorized,
		GRPCCode:  codes.Unauthenticated,
		MessageEN: "Principal not found",
		MessageZH: "身份主体不存在",
	})

	// ErrAuthenticationRequired indicates a non-public operation was invoked anonymously.
	ErrAuthenticationRequired = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryAuth, 2),
		HTTP:      http.StatusUnauthorized,
		GRPCCode:  codes.Unauthenticated,
		MessageEN: "Authentication required",
		MessageZH: "需要身份认证",
	})
)

// ============================================================================
// Policy (Category: 03)
// ============================================================================

var (
	// ErrRoleRequired indicates the principal holds none of the required roles.
	ErrRoleRequired = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryPermission, 0),
		HTTP:      http.StatusForbidden,
		GRPCCode:  codes.PermissionDenied,
		MessageEN: "Required roles missing",
		MessageZH: "缺少所需角色",
	})

	// ErrPermissionRequired indicates the principal lacks a required permission.
	ErrPermissionRequired = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryPermission, 1),
		HTTP:      http.StatusForbidden,
		GRPCCode:  codes.PermissionDenied,
		MessageEN: "Required permissions missing",
		MessageZH: "缺少所需权限",
	})
)

// ============================================================================
// Administration: not found (Category: 04)
// ============================================================================

var (
	// ErrRoleNotFound indicates the role does not exist.
	ErrRoleNotFound = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryResource, 0),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Role not found",
		MessageZH: "角色不存在",
	})

	// ErrPermissionNotFound indicates the permission does not exist.
	ErrPermissionNotFound = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryResource, 1),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Permission not found",
		MessageZH: "权限不存在",
	})

	// ErrRolePermissionNotFound indicates the role does not hold the permission.
	ErrRolePermissionNotFound = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryResource, 2),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Permission is not assigned to this role",
		MessageZH: "角色未分配该权限",
	})

	// ErrUserRoleNotFound indicates the user does not hold the role.
	ErrUserRoleNotFound = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryResource, 3),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "User does not have this role",
		MessageZH: "用户未拥有该角色",
	})
)

// ============================================================================
// Administration: conflicts (Category: 05)
// ============================================================================

var (
	// ErrRoleAlreadyExists indicates a role name is taken.
	ErrRoleAlreadyExists = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryConflict, 0),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "Role already exists",
		MessageZH: "角色已存在",
	})

	// ErrPermissionAlreadyExists indicates a resource:action pair is taken.
	ErrPermissionAlreadyExists = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryConflict, 1),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "Permission already exists",
		MessageZH: "权限已存在",
	})

	// ErrRolePermissionExists indicates the role already holds the permission.
	ErrRolePermissionExists = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryConflict, 2),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "Permission is already assigned to this role",
		MessageZH: "角色已拥有该权限",
	})

	// ErrUserRoleExists indicates the user already holds the role.
	ErrUserRoleExists = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryConflict, 3),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "User already has this role",
		MessageZH: "用户已拥有该角色",
	})

	// ErrUserAlreadyExists indicates the email is already registered.
	ErrUserAlreadyExists = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryConflict, 4),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "User already exists",
		MessageZH: "用户已存在",
	})
)

// ============================================================================
// Administration: bad input (Category: 01)
// ============================================================================

var (
	// ErrInvalidPermissionIDs indicates an unusable permission id list.
	ErrInvalidPermissionIDs = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryRequest, 0),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Invalid permission id list",
		MessageZH: "权限ID列表无效",
	})

	// ErrInvalidRole indicates an unknown primary role.
	ErrInvalidRole = Register(&Errno{
		Code:      MakeCode(ServiceIAM, CategoryRequest, 1),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Invalid role",
		MessageZH: "无效的角色",
	})
)
