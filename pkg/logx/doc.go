// Package logx wraps zerolog with a small Logger value type and a Service
// that can swap sinks and levels at runtime (config hot reload).
//
// The zero Logger is a safe no-op, so components can accept one without
// nil checks.
package logx
