// Package notify delivers circuit breaker failure notifications to
// operators. Transports exist for outbound email, NATS and Kafka; Multi fans
// one notification out to several transports concurrently.
package notify
