// Package shared holds utilities used across packages that belong to no
// single layer. Currently that is testutil, the slog capture helpers
// used by package tests.
package shared
