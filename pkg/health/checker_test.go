// SPDX-License-Identifier: LGPL-3.0-or-later

package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func TestCheckStorageHealthy(t *testing.T) {
	h := CheckStorage(&fakePinger{}, "memory")
	assert.True(t, h.Connected)
	assert.Equal(t, StatusHealthy, h.Status)
	assert.Equal(t, "memory", h.Driver)
}

func TestCheckStoragePingFails(t *testing.T) {
	h := CheckStorage(&fakePinger{err: errors.New("connection refused")}, "postgres")
	assert.False(t, h.Connected)
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.Contains(t, h.Error, "connection refused")
}

func TestCheckStorageNilBackend(t *testing.T) {
	h := CheckStorage(nil, "memory")
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.Contains(t, h.Error, "not configured")
}

func TestCheckSystemReportsMemoryAndGoroutines(t *testing.T) {
	h := CheckSystem()
	assert.NotZero(t, h.MemoryTotalMB)
	assert.Positive(t, h.GoRoutines)
}

func TestCheckAllCombinesStorageAndSystem(t *testing.T) {
	checker := NewChecker(&fakePinger{}, "memory")
	status := checker.CheckAll()
	assert.Equal(t, StatusHealthy, status.Status)
	assert.NotNil(t, status.StorageStatus)
	assert.NotNil(t, status.SystemStatus)
	assert.NotZero(t, status.Timestamp)
}

func TestCheckAllDegradesOnStorageFailure(t *testing.T) {
	checker := NewChecker(&fakePinger{err: errors.New("timeout")}, "postgres")
	status := checker.CheckAll()
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.NotEmpty(t, status.Errors)
}
