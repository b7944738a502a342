// Package events holds the lifecycle events of workflow instances.
package events

import (
	"github.com/google/uuid"

	"github.com/iota-uz/compliance-sdk/modules/workflow/domain/workflow"
	"github.com/iota-uz/compliance-sdk/pkg/eventbus"
)

const (
	KindStarted      eventbus.Kind = "workflow.started"
	KindTransitioned eventbus.Kind = "workflow.transitioned"
	KindCompleted    eventbus.Kind = "workflow.completed"
	KindCancelled    eventbus.Kind = "workflow.cancelled"
)

var Kinds = []eventbus.Kind{KindStarted, KindTransitioned, KindCompleted, KindCancelled}

type Meta struct {
	TenantID uuid.UUID
	ActorID  uuid.UUID
}

type Started struct {
	Meta
	Instance workflow.Instance
}

type Transitioned struct {
	Meta
	Instance      workflow.Instance
	PreviousStage string
	NewStage      string
	Reason        string
}

type Completed struct {
	Meta
	Instance workflow.Instance
	Outcome  string
}

// Cancelled covers both explicit cancellation and rejection by a reviewer.
type Cancelled struct {
	Meta
	Instance workflow.Instance
	Reason   string
}

func (Started) EventKind() eventbus.Kind      { return KindStarted }
func (Transitioned) EventKind() eventbus.Kind { return KindTransitioned }
func (Completed) EventKind() eventbus.Kind    { return KindCompleted }
func (Cancelled) EventKind() eventbus.Kind    { return KindCancelled }
