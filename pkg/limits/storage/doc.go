// Package storage provides persistence backends for per-account tracker
// state: an in-process memory backend and a SQLite backend for
// single-instance deployments that must survive restarts.
package storage
