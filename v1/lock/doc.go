// Package lock provides a named distributed mutex for cross-process
// single-flight coordination. Ownership is tracked by a server-side session
// lock (a leased Redis key in the default provider) rather than process
// memory, so the lock is effective across concurrent processes and hosts and
// auto-releases if the owning process dies.
package lock
