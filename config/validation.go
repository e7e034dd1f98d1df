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

package config

import "fmt"

// ValidationIssue describes a single configuration problem found by
// ValidateConfiguration. Level is either "error" (load must fail) or
// "warning" (load proceeds, issue is logged by the caller).
type ValidationIssue struct {
	Level   string
	Field   string
	Message string
}

func issue(level, field, format string, args ...any) ValidationIssue {
	return ValidationIssue{Level: level, Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateConfiguration checks a loaded Config for missing secrets,
// invalid TTLs, and an unrecognized storage driver. It never mutates cfg.
func ValidateConfiguration(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg == nil {
		return []ValidationIssue{issue("error", "config", "configuration is nil")}
	}

	if cfg.Core == nil {
		issues = append(issues, issue("error", "core", "core section is required"))
	} else {
		requiredSecrets := map[string]string{
			"core.k_user":    cfg.Core.KUser,
			"core.k_row":     cfg.Core.KRow,
			"core.k_jwt":     cfg.Core.KJWT,
			"core.k_refresh": cfg.Core.KRefresh,
			"core.k_magic":   cfg.Core.KMagic,
		}
		for field, value := range requiredSecrets {
			if value == "" {
				level := "error"
				if IsDevelopment() {
					level = "warning"
				}
				issues = append(issues, issue(level, field, "secret is not set"))
			}
		}

		if cfg.Core.ServerEd25519Seed == "" {
			issues = append(issues, issue("error", "core.server_ed25519_seed", "server signing seed is required"))
		}
		if cfg.Core.ServerX25519Seed == "" {
			issues = append(issues, issue("error", "core.server_x25519_seed", "server ECDH seed is required"))
		}

		if cfg.Core.AccessTTL <= 0 {
			issues = append(issues, issue("error", "core.access_ttl", "must be positive"))
		}
		if cfg.Core.RefreshTTL <= 0 {
			issues = append(issues, issue("error", "core.refresh_ttl", "must be positive"))
		}
		if cfg.Core.RefreshTTL <= cfg.Core.AccessTTL {
			issues = append(issues, issue("warning", "core.refresh_ttl", "should exceed access_ttl"))
		}
		if cfg.Core.MagicTTL <= 0 {
			issues = append(issues, issue("error", "core.magic_ttl", "must be positive"))
		}
	}

	if cfg.Storage == nil {
		issues = append(issues, issue("error", "storage", "storage section is required"))
	} else {
		switch cfg.Storage.Driver {
		case "memory":
		case "postgres":
			if cfg.Storage.DSN == "" {
				issues = append(issues, issue("error", "storage.dsn", "required when driver is postgres"))
			}
		default:
			issues = append(issues, issue("error", "storage.driver", "unrecognized driver %q, want memory or postgres", cfg.Storage.Driver))
		}
	}

	if cfg.Logging != nil {
		switch cfg.Logging.Level {
		case "debug", "info", "warn", "error":
		default:
			issues = append(issues, issue("warning", "logging.level", "unrecognized level %q", cfg.Logging.Level))
		}
	}

	return issues
}
