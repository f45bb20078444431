package core

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// FailureKind classifies an execution failure captured in a
// QueryResult.
type FailureKind string

const (
	// FailureConnection covers failures reaching or keeping the
	// backend connection.
	FailureConnection FailureKind = "connection_failure"

	// FailureQuery covers errors the backend itself reported for the
	// statement (syntax, missing table, constraint violation).
	FailureQuery FailureKind = "query_failure"

	// FailureTimeout covers executions cut off by the backend's
	// configured timeout.
	FailureTimeout FailureKind = "timeout"
)

// ClassifyError maps an execution error to its FailureKind. Context
// cancellation counts as a timeout: the deadline wrapper is the only
// thing cancelling contexts inside the routing layer.
func ClassifyError(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureTimeout
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return FailureConnection
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return FailureConnection
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureConnection
	}
	msg := err.Error()
	if strings.Contains(msg, "database is closed") || strings.Contains(msg, "connection refused") {
		return FailureConnection
	}
	return FailureQuery
}

// NotFoundError reports an operation against a name no backend is
// registered under.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("database %q is not registered", e.Name)
}

// DuplicateNameError reports an attempt to register a second backend
// under an existing name.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("database %q is already registered", e.Name)
}

// UnknownEngineError reports a config naming an engine outside the
// supported set.
type UnknownEngineError struct {
	Engine    Engine
	Available []Engine
}

func (e *UnknownEngineError) Error() string {
	names := make([]string, len(e.Available))
	for i, eng := range e.Available {
		names[i] = string(eng)
	}
	return fmt.Sprintf("unsupported engine %q (supported: %s)", e.Engine, strings.Join(names, ", "))
}

// DriverUnavailableError reports a supported engine whose adapter was
// not compiled into this build.
type DriverUnavailableError struct {
	Engine Engine
}

func (e *DriverUnavailableError) Error() string {
	return fmt.Sprintf("engine %q is supported but its driver is not available in this build", e.Engine)
}
