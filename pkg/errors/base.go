package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// OK represents a successful operation.
var OK = Register(&Errno{
	Code:      0,
	HTTP:      http.StatusOK,
	GRPCCode:  codes.OK,
	MessageEN: "Success",
	MessageZH: "成功",
})

// ============================================================================
// Request Errors (Category: 01)
// ============================================================================

var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 0),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Bad request",
		MessageZH: "请求错误",
	})

	// ErrInvalidParam indicates an invalid parameter.
	ErrInvalidParam = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 1),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Invalid parameter",
		MessageZH: "参数无效",
	})

	// ErrMissingParam indicates a missing required parameter.
	ErrMissingParam = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 2),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Missing required parameter",
		MessageZH: "缺少必需参数",
	})

	// ErrValidationFailed indicates request validation failed.
	ErrValidationFailed = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 4),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Validation failed",
		MessageZH: "验证失败",
	})
)

// ============================================================================
// Authentication Errors (Category: 02)
// ============================================================================

var (
	// ErrUnauthorized indicates the caller is not authenticated.
	ErrUnauthorized = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryAuth, 0),
		HTTP:      http.StatusUnauthorized,
		GRPCCode:  codes.Unauthenticated,
		MessageEN: "Unauthorized",
		MessageZH: "未授权",
	})

	// ErrInvalidToken indicates an invalid token.
	ErrInvalidToken = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryAuth, 1),
		HTTP:      http.StatusUnauthorized,
		GRPCCode:  codes.Unauthenticated,
		MessageEN: "Invalid token",
		MessageZH: "无效的令牌",
	})

	// ErrTokenExpired indicates an expired token.
	ErrTokenExpired = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryAuth, 2),
		HTTP:      http.StatusUnauthorized,
		GRPCCode:  codes.Unauthenticated,
		MessageEN: "Token expired",
		MessageZH: "令牌已过期",
	})

	// ErrInvalidCredentials indicates invalid login credentials.
	ErrInvalidCredentials = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryAuth, 3),
		HTTP:      http.StatusUnauthorized,
		GRPCCode:  codes.Unauthenticated,
		MessageEN: "Invalid credentials",
		MessageZH: "凭证无效",
	})

	// ErrTokenRevoked indicates a revoked token.
	ErrTokenRevoked = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryAuth, 4),
		HTTP:      http.StatusUnauthorized,
		GRPCCode:  codes.Unauthenticated,
		MessageEN: "Token revoked",
		MessageZH: "令牌已被撤销",
	})

	// ErrSessionExpired indicates the refresh window has passed.
	ErrSessionExpired = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryAuth, 5),
		HTTP:      http.StatusUnauthorized,
		GRPCCode:  codes.Unauthenticated,
		MessageEN: "Session expired",
		MessageZH: "会话已过期",
	})
)

// ============================================================================
// Authorization Errors (Category: 03)
// ============================================================================

var (
	// ErrForbidden indicates access is forbidden.
	ErrForbidden = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryPermission, 0),
		HTTP:      http.StatusForbidden,
		GRPCCode:  codes.PermissionDenied,
		MessageEN: "Forbidden",
		MessageZH: "禁止访问",
	})

	// ErrNoPermission indicates the caller lacks a required role or permission.
	ErrNoPermission = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryPermission, 1),
		HTTP:      http.StatusForbidden,
		GRPCCode:  codes.PermissionDenied,
		MessageEN: "No permission",
		MessageZH: "没有权限",
	})

	// ErrAccountDisabled indicates the account is disabled.
	ErrAccountDisabled = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryPermission, 3),
		HTTP:      http.StatusForbidden,
		GRPCCode:  codes.PermissionDenied,
		MessageEN: "Account disabled",
		MessageZH: "账户已禁用",
	})
)

// ============================================================================
// Resource Errors (Category: 04)
// ============================================================================

var (
	// ErrNotFound indicates the resource is not found.
	ErrNotFound = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryResource, 0),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Resource not found",
		MessageZH: "资源不存在",
	})

	// ErrUserNotFound indicates the user is not found.
	ErrUserNotFound = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryResource, 1),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "User not found",
		MessageZH: "用户不存在",
	})

	// ErrRouteNotFound indicates the route is not found.
	ErrRouteNotFound = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryResource, 4),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Route not found",
		MessageZH: "路由不存在",
	})
)

// ============================================================================
// Conflict Errors (Category: 05)
// ============================================================================

var (
	// ErrConflict indicates a resource conflict.
	ErrConflict = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryConflict, 0),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "Resource conflict",
		MessageZH: "资源冲突",
	})

	// ErrAlreadyExists indicates the resource already exists.
	ErrAlreadyExists = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryConflict, 1),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "Resource already exists",
		MessageZH: "资源已存在",
	})
)

// ============================================================================
// Rate Limit Errors (Category: 06)
// ============================================================================

var (
	// ErrTooManyRequests indicates too many requests.
	ErrTooManyRequests = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRateLimit, 0),
		HTTP:      http.StatusTooManyRequests,
		GRPCCode:  codes.ResourceExhausted,
		MessageEN: "Too many requests",
		MessageZH: "请求过于频繁",
	})
)

// ============================================================================
// Internal Errors (Category: 07)
// ============================================================================

var (
	// ErrInternal indicates an internal server error.
	ErrInternal = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Internal server error",
		MessageZH: "服务器内部错误",
	})

	// ErrPanic indicates a recovered panic.
	ErrPanic = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 2),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Service panic",
		MessageZH: "服务崩溃",
	})

	// ErrServiceUnavailable indicates a dependency is down.
	ErrServiceUnavailable = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 4),
		HTTP:      http.StatusServiceUnavailable,
		GRPCCode:  codes.Unavailable,
		MessageEN: "Service unavailable",
		MessageZH: "服务不可用",
	})

	// ErrNotImplemented indicates the feature is not implemented.
	ErrNotImplemented = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 3),
		HTTP:      http.StatusNotImplemented,
		GRPCCode:  codes.Unimplemented,
		MessageEN: "Not implemented",
		MessageZH: "功能未实现",
	})
)

// ============================================================================
// Database Errors (Category: 08)
// ============================================================================

var (
	// ErrDatabase indicates a database error.
	ErrDatabase = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryDatabase, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Database error",
		MessageZH: "数据库错误",
	})

	// ErrDBConnection indicates database connection failure.
	ErrDBConnection = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryDatabase, 1),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Unavailable,
		MessageEN: "Database connection failed",
		MessageZH: "数据库连接失败",
	})

	// ErrDBTransaction indicates database transaction failure.
	ErrDBTransaction = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryDatabase, 3),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Database transaction failed",
		MessageZH: "数据库事务失败",
	})
)
