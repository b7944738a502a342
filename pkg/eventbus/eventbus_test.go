package eventbus

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	kindPing Kind = "test.ping"
	kindPong Kind = "test.pong"
)

type ping struct{ data string }

func (ping) EventKind() Kind { return kindPing }

type pong struct{}

func (pong) EventKind() Kind { return kindPong }

type undeclared struct{}

func (undeclared) EventKind() Kind { return "test.undeclared" }

func newTestBus(level logrus.Level) (EventBus, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(level)
	bus := NewEventPublisher(log)
	bus.Declare(kindPing, kindPong)
	return bus, buf
}

func TestPublisher_DispatchesByKind(t *testing.T) {
	bus, _ := newTestBus(logrus.WarnLevel)

	var got []string
	On(bus, "ping-handler", func(ctx context.Context, e ping) error {
		got = append(got, e.data)
		return nil
	})
	On(bus, "pong-handler", func(ctx context.Context, e pong) error {
		t.Error("pong handler should not be called")
		return nil
	})

	bus.Publish(context.Background(), ping{data: "test"})
	assert.Equal(t, []string{"test"}, got)
	assert.Equal(t, 2, bus.SubscribersCount())
}

func TestPublisher_UndeclaredKind(t *testing.T) {
	bus, buf := newTestBus(logrus.ErrorLevel)

	bus.Publish(context.Background(), undeclared{})
	assert.Contains(t, buf.String(), "unknown event kind")

	err := bus.PublishE(context.Background(), undeclared{})
	require.ErrorIs(t, err, ErrUnknownKind)

	assert.Panics(t, func() {
		bus.Subscribe("test.undeclared", "h", func(context.Context, Event) error { return nil })
	})
}

func TestPublisher_PanicAndErrorAreContained(t *testing.T) {
	bus, buf := newTestBus(logrus.ErrorLevel)

	called1, called3 := false, false
	On(bus, "first", func(context.Context, ping) error {
		called1 = true
		return nil
	})
	On(bus, "second", func(context.Context, ping) error {
		panic("intentional panic for testing")
	})
	On(bus, "third", func(context.Context, ping) error {
		called3 = true
		return errors.New("third failed")
	})

	require.NotPanics(t, func() {
		bus.Publish(context.Background(), ping{data: "x"})
	})
	assert.True(t, called1)
	assert.True(t, called3, "a panicking handler must not stop later handlers")

	output := buf.String()
	assert.Contains(t, output, "panicked")
	assert.Contains(t, output, "intentional panic for testing")
	assert.Contains(t, output, "third failed")
	assert.Contains(t, output, "handler=third")
}

func TestPublisher_PublishEJoinsErrors(t *testing.T) {
	bus, _ := newTestBus(logrus.ErrorLevel)

	require.ErrorIs(t, bus.PublishE(context.Background(), pong{}), ErrNoSubscribers)

	errA := errors.New("a")
	On(bus, "a", func(context.Context, pong) error { return errA })
	On(bus, "b", func(context.Context, pong) error { panic("b") })

	err := bus.PublishE(context.Background(), pong{})
	require.ErrorIs(t, err, errA)
	assert.Contains(t, err.Error(), "handler b panicked")
}

func TestPublisher_UnsubscribeAndClear(t *testing.T) {
	bus, _ := newTestBus(logrus.ErrorLevel)
	On(bus, "a", func(context.Context, ping) error { return nil })
	On(bus, "b", func(context.Context, ping) error { return nil })

	bus.Unsubscribe(kindPing, "a")
	assert.Equal(t, 1, bus.SubscribersCount())

	bus.Clear()
	assert.Equal(t, 0, bus.SubscribersCount())
}
