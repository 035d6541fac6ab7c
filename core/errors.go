package core

import (
	"errors"
	"fmt"
)

// Failure classes. Every fatal condition wraps exactly one of these so the
// caller can tell them apart with errors.Is.
var (
	ErrResourceLoad = errors.New("resource load failure")
	ErrCompile      = errors.New("shader compile failure")
	ErrLink         = errors.New("program link failure")
	ErrInvariant    = errors.New("invariant violation")
)

// ShaderError carries the backend info log of a failed compile or link.
type ShaderError struct {
	Kind  error  // ErrCompile or ErrLink
	Stage string // "vertex", "geometry", "fragment" or "program"
	Path  string
	Log   string
}

func (e *ShaderError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v (%s): %s", e.Kind, e.Stage, e.Log)
	}
	return fmt.Sprintf("%v (%s %s): %s", e.Kind, e.Stage, e.Path, e.Log)
}

func (e *ShaderError) Unwrap() error { return e.Kind }
