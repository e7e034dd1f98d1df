// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// SPDX-License-Identifier: LGPL-3.0-or-later

// Package metrics defines the Prometheus instrumentation exposed by
// every component of the service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// namespace prefixes every metric exposed by this service.
const namespace = "corevault"

// Registry is the single Prometheus registry every metric in this
// package (and its callers) is registered against. It is deliberately
// not the global DefaultRegisterer so that tests can spin up an
// isolated process-wide registry per test binary.
var Registry = prometheus.NewRegistry()
