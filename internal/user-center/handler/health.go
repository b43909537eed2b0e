package handler

import (
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/utils/response"
)

// HealthCheck is a named dependency probe.
type HealthCheck struct {
	Name  string
	Check func() error
}

// HealthHandler reports the liveness of the service dependencies.
type HealthHandler struct {
	checks []HealthCheck
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Check runs every probe and fails with 503 naming the failed ones.
func (h *HealthHandler) Check(c *gin.Context) {
	status := make(map[string]string, len(h.checks))
	var failed []string
	for _, check := range h.checks {
		if err := check.Check(); err != nil {
			failed = append(failed, check.Name)
			status[check.Name] = err.Error()
			continue
		}
		status[check.Name] = "ok"
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		response.Fail(c, errors.ErrServiceUnavailable.WithMessagef("unhealthy: %s", strings.Join(failed, ", ")))
		return
	}
	response.OK(c, gin.H{"status": "ok", "checks": status})
}
