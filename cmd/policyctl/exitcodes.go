package main

import (
	"errors"

	"github.com/iota-uz/compliance-sdk/pkg/commands"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 3
	exitDisabled = 4
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, commands.ErrUsage):
		return exitUsage
	case errors.Is(err, commands.ErrSearchDisabled):
		return exitDisabled
	default:
		return exitFailure
	}
}
