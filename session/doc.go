// Package session houses concrete implementations of core.SessionStore. The
// interface and the Session struct live in core; keeping only implementations
// here prevents agents from depending on concrete storage.
package session
