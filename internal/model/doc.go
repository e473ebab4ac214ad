// Package model provides the shared types for managed graphs and their versions.
//
// This package contains type definitions only. All other internal packages
// import model; model imports nothing internal.
//
// Key design constraints:
//   - A Version is write-once: its concrete context never changes after publish
//   - Ordering uses the persisted logical seq, never wall-clock timestamps
//   - All JSON tags use snake_case
package model
