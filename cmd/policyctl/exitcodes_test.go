package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iota-uz/compliance-sdk/pkg/commands"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitUsage, exitCode(fmt.Errorf("%w: bad tenant", commands.ErrUsage)))
	assert.Equal(t, exitDisabled, exitCode(commands.ErrSearchDisabled))
	assert.Equal(t, exitFailure, exitCode(errors.New("boom")))
}

func TestRootCmd_ListsOperatorCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["migrate"])
	assert.True(t, names["seed-templates"])
	assert.True(t, names["reindex"])
}
