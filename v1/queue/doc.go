// Package queue persists pending synchronization work as durable job rows.
// Jobs are enqueued in either direction (push toward the remote, pull from
// it), drained by an external worker in priority-then-creation order, and
// carry their own retry bookkeeping. Row deserialization is tolerant: legacy
// or partially populated rows decode to safe defaults instead of failing.
package queue
