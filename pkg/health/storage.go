// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package health

import (
	"context"
	"fmt"
	"time"
)

// Pinger is the minimal surface health checks need from a storage
// backend; pkg/storage.Store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckStorage measures storage connectivity and latency.
func CheckStorage(store Pinger, driver string) *StorageHealth {
	health := &StorageHealth{
		Driver:    driver,
		Connected: false,
		Status:    StatusUnhealthy,
	}

	if store == nil {
		health.Error = "storage backend not configured"
		return health
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := store.Ping(ctx); err != nil {
		health.Error = fmt.Sprintf("ping failed: %v", err)
		return health
	}
	latency := time.Since(start)
	health.Latency = latency.String()
	health.Connected = true

	switch {
	case latency < 100*time.Millisecond:
		health.Status = StatusHealthy
	case latency < 1*time.Second:
		health.Status = StatusDegraded
	default:
		health.Status = StatusUnhealthy
		health.Error = fmt.Sprintf("high latency: %v", latency)
	}

	return health
}
