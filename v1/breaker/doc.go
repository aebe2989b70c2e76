// Package breaker implements a failure-count driven circuit breaker that
// gates attempts against an unreliable remote service. All breaker state
// (failure count, opened-at timestamp, probe claim) lives in a shared
// StateStore so that any number of independent processes observe the same
// circuit. The half-open probe is single-flight system-wide: a short-lived
// claim flag filters rapid repeated checks and a distributed mutex settles
// genuine cross-process races.
package breaker
