package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrUnknown = errors.New("unknown")

	// ErrNotFound is returned by registry lookups (pipelines, layouts, passes).
	ErrNotFound = errors.New("not found")
	// ErrDeviceLost is returned when a fence wait times out or the driver
	// reports the device as lost.
	ErrDeviceLost = errors.New("device lost")
	// ErrGraphStarted is returned when passes are registered after the first
	// frame has been executed.
	ErrGraphStarted = errors.New("render graph already executing")
	// ErrShaderMissing is returned when a SPIR-V file cannot be read.
	ErrShaderMissing = errors.New("shader file missing")
	// ErrShaderInvalid is returned when a file is not valid SPIR-V.
	ErrShaderInvalid = errors.New("invalid shader bytecode")
	// ErrOutOfDate marks a surface that no longer matches its swapchain.
	ErrOutOfDate = errors.New("surface out of date")
)
