package errors

// Service codes (AA)
const (
	// ServiceCommon is for common/base errors shared by all services.
	ServiceCommon = 0

	// ServiceUserCenter is for the user-center service.
	ServiceUserCenter = 2

	// ServiceIAM is for identity, policy and administration errors.
	ServiceIAM = 5
)

// Category codes (BB)
const (
	CategorySuccess    = 0
	CategoryRequest    = 1 // 400
	CategoryAuth       = 2 // 401
	CategoryPermission = 3 // 403
	CategoryResource   = 4 // 404
	CategoryConflict   = 5 // 409
	CategoryRateLimit  = 6 // 429
	CategoryInternal   = 7 // 500
	CategoryDatabase   = 8 // 500
	CategoryCache      = 9 // 500
)

// MakeCode creates an error code from service, category, and sequence.
// Format: AABBCCC where AA=service, BB=category, CCC=sequence
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode parses an error code into service, category, and sequence.
func ParseCode(code int) (service, category, sequence int) {
	service = code / 100000
	category = (code % 100000) / 1000
	sequence = code % 1000
	return
}

// GetCategory returns the category code from an error code.
func GetCategory(code int) int {
	return (code % 100000) / 1000
}

// IsClientError checks if the error code indicates a client error (4xx).
func IsClientError(code int) bool {
	category := GetCategory(code)
	return category >= CategoryRequest && category <= CategoryRateLimit
}

// IsServerError checks if the error code indicates a server error (5xx).
func IsServerError(code int) bool {
	return GetCategory(code) >= CategoryInternal
}
