package graph

import "github.com/pkg/errors"

var (
	// ErrDuplicateID is returned when an add would reuse an existing id
	// within the same namespace.
	ErrDuplicateID = errors.New("id already exists")

	// ErrNodeNotFound is returned by operations documented to fail on a
	// missing node. Optional lookups return ok=false instead.
	ErrNodeNotFound = errors.New("node not found")

	// ErrConnectionNotFound is returned by control-point mutations on a
	// missing connection.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrPortNotFound is returned when a connection endpoint names a port
	// the node does not have.
	ErrPortNotFound = errors.New("port not found")

	// ErrAnnotationNotFound is returned by group-membership mutations on a
	// missing annotation.
	ErrAnnotationNotFound = errors.New("annotation not found")

	// ErrPortOccupied is returned when a second connection targets an input
	// port that does not allow multiple connections.
	ErrPortOccupied = errors.New("port does not accept multiple connections")

	// ErrInvalidSnapshot is returned by Load when a snapshot fails
	// validation.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)
