// Package errors provides foundational, type-safe error primitives used across the scheduler.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: the scheduler's §7 taxonomy (parse, resolution_failed,
//     frequency_expired, missing_expression, non_deterministic, conflict, plus
//     the ambient config/network/runtime/daemon/internal categories)
//   - ErrorSeverity: Impact level (error, warning, info, fatal)
//   - RetryStrategy: Retry behavior (never, immediate, backoff, rate_limit, user)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for error presentation and exit codes
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryFrequencyExpired, "daily schedule past its until bound").
//		WithContext("schedule_id", id).
//		Build()
package errors
