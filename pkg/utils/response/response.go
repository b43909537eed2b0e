// Package response provides the unified API response envelope.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/utils/json"
)

// ContextKeyRequestID is the gin key holding the request id.
const ContextKeyRequestID = "request_id"

// Response is the unified API response structure.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// HTTPCode is the HTTP status code (optional, for client convenience)
	HTTPCode int `json:"http_code,omitempty"`

	// Message is a human-readable message
	Message string `json:"message"`

	// Data contains the response payload (nil for errors)
	Data interface{} `json:"data,omitempty"`

	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`

	// Timestamp is the response timestamp (Unix milliseconds)
	Timestamp int64 `json:"timestamp,omitempty"`
}

// PageData represents paginated data.
type PageData struct {
	List       interface{} `json:"list"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// Success creates a successful response with data.
func Success(data interface{}) *Response {
	return &Response{
		Code:     0,
		HTTPCode: http.StatusOK,
		Message:  "success",
		Data:     data,
	}
}

// errResponse creates an error response with the message in lang.
func errResponse(e *errors.Errno, lang string) *Response {
	if e == nil {
		return Success(nil)
	}
	return &Response{
		Code:     e.Code,
		HTTPCode: e.HTTPStatus(),
		Message:  e.Message(lang),
	}
}

// NewPageData builds a page of list. TotalPages is zero when pageSize is
// not positive.
func NewPageData(list interface{}, total int64, page, pageSize int) *PageData {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}

	return &PageData{
		List:       list,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// HTTPStatus returns the appropriate HTTP status code for this response.
func (r *Response) HTTPStatus() int {
	if r.HTTPCode != 0 {
		return r.HTTPCode
	}
	if r.Code == 0 {
		return http.StatusOK
	}
	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Write renders err (when non-nil) or data as a Response envelope.
// Errors that are not an *errors.Errno are reported as internal errors.
func Write(c *gin.Context, err error, data interface{}) {
	if err != nil {
		Fail(c, errors.FromError(err))
		return
	}
	render(c, Success(data))
}

// OK renders a successful response.
func OK(c *gin.Context, data interface{}) {
	render(c, Success(data))
}

// Fail renders an error response and aborts the handler chain.
func Fail(c *gin.Context, e *errors.Errno) {
	render(c, errResponse(e, c.GetHeader("Accept-Language")))
	c.Abort()
}

func render(c *gin.Context, r *Response) {
	r.RequestID = c.GetString(ContextKeyRequestID)
	r.Timestamp = time.Now().UnixMilli()

	body, err := json.Marshal(r)
	if err != nil {
		c.Data(http.StatusInternalServerError, "application/json; charset=utf-8",
			[]byte(`{"code":7000,"message":"Internal server error"}`))
		return
	}
	c.Data(r.HTTPStatus(), "application/json; charset=utf-8", body)
}
