// Package services provides shared error classification sentinels and
// context annotation helpers used across tether components.
package services
