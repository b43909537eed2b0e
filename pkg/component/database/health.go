package database

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus is the result of a database health check.
type HealthStatus struct {
	Name    string        `json:"name"`
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// CheckHealth pings the database and inspects pool statistics.
func CheckHealth(ctx context.Context, client *Client, timeout time.Duration) HealthStatus {
	status := HealthStatus{Name: client.Name()}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		status.Error = fmt.Sprintf("ping failed: %v", err)
		status.Latency = time.Since(start)
		return status
	}
	status.Latency = time.Since(start)

	sqlDB, err := client.SqlDB()
	if err != nil {
		status.Error = fmt.Sprintf("failed to get sql.DB: %v", err)
		return status
	}

	stats := sqlDB.Stats()
	// Long waits for a connection mean the pool is exhausted.
	if stats.WaitCount > 0 && stats.WaitDuration > 5*time.Second {
		status.Error = fmt.Sprintf("high connection wait time: count=%d, duration=%v",
			stats.WaitCount, stats.WaitDuration)
		return status
	}

	status.Healthy = true
	return status
}
