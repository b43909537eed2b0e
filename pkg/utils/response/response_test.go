package response

import (
	stdjson "encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-iam/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestWrite(t *testing.T) {
	invalid := errors.ErrInvalidParam.WithMessages("name is invalid", "名称无效")

	tests := []struct {
		name     string
		lang     string
		err      error
		wantHTTP int
		wantCode int
		wantMsg  string
	}{
		{name: "success", wantHTTP: http.StatusOK, wantMsg: "success"},
		{name: "english", err: invalid, wantHTTP: http.StatusBadRequest, wantCode: invalid.Code, wantMsg: "name is invalid"},
		{name: "chinese", lang: "zh-CN,zh;q=0.9", err: invalid, wantHTTP: http.StatusBadRequest, wantCode: invalid.Code, wantMsg: "名称无效"},
		{name: "plain error", err: stderrors.New("boom"), wantHTTP: http.StatusInternalServerError, wantCode: errors.ErrInternal.Code, wantMsg: errors.ErrInternal.MessageEN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.lang != "" {
				c.Request.Header.Set("Accept-Language", tt.lang)
			}
			c.Set(ContextKeyRequestID, "req-1")

			Write(c, tt.err, nil)

			var resp Response
			require.NoError(t, stdjson.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantHTTP, w.Code)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMsg, resp.Message)
			assert.Equal(t, "req-1", resp.RequestID)
			assert.Equal(t, tt.err != nil, c.IsAborted())
		})
	}
}

func TestNewPageData(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		pageSize int
		want     int
	}{
		{name: "exact", total: 20, pageSize: 10, want: 2},
		{name: "remainder", total: 21, pageSize: 10, want: 3},
		{name: "empty", total: 0, pageSize: 10, want: 0},
		{name: "unsized", total: 5, pageSize: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPageData([]int{}, tt.total, 1, tt.pageSize)
			assert.Equal(t, tt.want, got.TotalPages)
			assert.Equal(t, tt.total, got.Total)
		})
	}
}
