// Package integration contains integration tests for the trustBank gateway.
//
// These tests use testcontainers to spin up real dependencies (Redis) and test
// the complete functionality of the service in an environment that closely
// matches production.
package integration
