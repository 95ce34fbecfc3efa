// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines interfaces for enterprise functionality.
//
// This package provides extension points that allow SapheneiaEnterprise
// to add capabilities without modifying the core SapheneiaStudio codebase.
// The open source version uses no-op defaults for all interfaces.
//
// # Design Philosophy
//
// SapheneiaStudio is designed as a fully functional local strategy builder
// that works offline without any external infrastructure. Enterprise
// deployments — shared catalogs, multi-user strategy ownership, compliance
// trails for generated trading code — are implemented by providing concrete
// implementations of these interfaces and injecting them via ServiceOptions.
//
// # Extension Categories
//
// The package is organized by domain:
//
//   - auth.go: Authentication and authorization (AuthProvider, AuthzProvider)
//   - audit.go: Compliance audit logging of generation activity (AuditLogger)
//   - metadata.go: Extensible key-value claims carried on identities and events
//
// # Usage in SapheneiaStudio (Open Source)
//
// The open source version uses no-op implementations:
//
//	opts := extensions.DefaultOptions()
//	router := routes.SetupRoutes(deps, opts)
//
// # Usage in SapheneiaEnterprise
//
// Enterprise provides concrete implementations:
//
//	opts := extensions.ServiceOptions{
//	    AuthProvider:  enterprise.NewOktaProvider(config),
//	    AuthzProvider: enterprise.NewStrategyRBAC(policy),
//	    AuditLogger:   enterprise.NewSplunkAuditor(config),
//	}
//	router := routes.SetupRoutes(deps, opts)
//
// # Thread Safety
//
// All interface implementations must be safe for concurrent use.
// Multiple goroutines may call methods simultaneously.
package extensions

// ServiceOptions groups all extension points for service configuration.
//
// Pass this to the route assembly to enable enterprise features. All
// fields are optional; nil values are replaced with no-op defaults by
// DefaultOptions() or by services checking for nil.
type ServiceOptions struct {
	// AuthProvider validates authentication tokens.
	// Default: NopAuthProvider (always returns the local owner)
	AuthProvider AuthProvider

	// AuthzProvider checks authorization for strategy operations.
	// Default: NopAuthzProvider (always allows all actions)
	AuthzProvider AuthzProvider

	// AuditLogger records security-relevant generation events.
	// Default: NopAuditLogger (discards all events)
	AuditLogger AuditLogger
}

// DefaultOptions returns ServiceOptions with no-op defaults.
//
// This is the configuration used by the open source version: every
// request is the local owner, every action is allowed, and no audit
// trail is kept.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider:  &NopAuthProvider{},
		AuthzProvider: &NopAuthzProvider{},
		AuditLogger:   &NopAuditLogger{},
	}
}

// WithAuth returns a copy of opts with the given AuthProvider.
// Useful for fluent configuration.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithAuthz returns a copy of opts with the given AuthzProvider.
func (opts ServiceOptions) WithAuthz(provider AuthzProvider) ServiceOptions {
	opts.AuthzProvider = provider
	return opts
}

// WithAudit returns a copy of opts with the given AuditLogger.
func (opts ServiceOptions) WithAudit(logger AuditLogger) ServiceOptions {
	opts.AuditLogger = logger
	return opts
}
