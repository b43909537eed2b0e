// Package handler implements the user-center HTTP handlers. Every handler
// runs behind the authorization guard and shapes its payload through the
// field access filter.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-iam/pkg/errors"
	authmw "github.com/kart-io/sentinel-iam/pkg/infra/middleware/auth"
	"github.com/kart-io/sentinel-iam/pkg/store"
	"github.com/kart-io/sentinel-iam/pkg/utils/response"
	"github.com/kart-io/sentinel-iam/pkg/validator"
)

const defaultPageSize = 20

// PageRequest is the query of paged listings.
type PageRequest struct {
	Page     int `form:"page" json:"page" validate:"omitempty,min=1"`
	PageSize int `form:"page_size" json:"page_size" validate:"omitempty,min=1,max=100"`
}

func (r *PageRequest) complete() {
	if r.Page == 0 {
		r.Page = 1
	}
	if r.PageSize == 0 {
		r.PageSize = defaultPageSize
	}
	if r.PageSize > store.MaxPageSize {
		r.PageSize = store.MaxPageSize
	}
}

// bindJSON decodes the request body into req and validates it.
func bindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return errors.ErrBadRequest.WithCause(err).WithMessage("invalid request body")
	}
	return validator.Check(req)
}

// bindQuery decodes the query string into req and validates it.
func bindQuery(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindQuery(req); err != nil {
		return errors.ErrBadRequest.WithCause(err).WithMessage("invalid query parameters")
	}
	return validator.Check(req)
}

// bindName reads the :name path parameter and validates it against tag.
func bindName(c *gin.Context, tag string) (string, error) {
	name := c.Param("name")
	return name, validator.CheckVar(name, "name", tag)
}

// bindPage reads and normalizes the paging query.
func bindPage(c *gin.Context) (PageRequest, error) {
	var req PageRequest
	if err := bindQuery(c, &req); err != nil {
		return req, err
	}
	req.complete()
	return req, nil
}

// paramID parses a positive numeric path parameter.
func paramID(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.ErrInvalidParam.WithMessagef("%s must be a positive integer", name)
	}
	return id, nil
}

// writePage renders a filtered page.
func writePage(c *gin.Context, list interface{}, total int64, page PageRequest) {
	authmw.Write(c, nil, response.NewPageData(list, total, page.Page, page.PageSize))
}
