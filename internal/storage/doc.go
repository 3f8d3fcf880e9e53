// Package storage is the sqlite-backed Config Store.
//
// Two tables: one row per announcement config, N target rows per config
// (unique per channel, cascade-deleted with the parent). Target replacement
// is a single transaction, so readers never observe a half-replaced set.
package storage
