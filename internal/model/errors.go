package model

import (
	"fmt"
	"syscall"
)

// LaunchError reports that one service's executable could not be started.
// It is fatal to that service only; sibling services keep running.
type LaunchError struct {
	Service string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch service %s: %v", e.Service, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// SignalInstallError reports that a forwarding handler could not be
// installed. This aborts startup: children must never exist without the
// forwarding contract in place.
type SignalInstallError struct {
	Signal syscall.Signal
	Err    error
}

func (e *SignalInstallError) Error() string {
	return fmt.Sprintf("failed to set signal handler for %s: %v", e.Signal, e.Err)
}

func (e *SignalInstallError) Unwrap() error {
	return e.Err
}

// PrehookError reports a prehook that failed to run or whose output could
// not be interpreted. Prehooks feed templates, so this aborts startup.
type PrehookError struct {
	Hook string
	Err  error
}

func (e *PrehookError) Error() string {
	return fmt.Sprintf("prehook %s failed: %v", e.Hook, e.Err)
}

func (e *PrehookError) Unwrap() error {
	return e.Err
}
