package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Kind names an event. Kinds must be declared on the bus before use.
type Kind string

type Event interface {
	EventKind() Kind
}

type Handler func(ctx context.Context, event Event) error

type EventBus interface {
	// Declare registers the closed set of kinds a module produces.
	Declare(kinds ...Kind)
	// Publish dispatches synchronously; handler errors and panics are logged, never returned.
	Publish(ctx context.Context, event Event)
	// PublishE dispatches like Publish but joins handler errors.
	PublishE(ctx context.Context, event Event) error
	Subscribe(kind Kind, name string, handler Handler)
	Unsubscribe(kind Kind, name string)
	Clear()
	SubscribersCount() int
}

var (
	ErrNoSubscribers = errors.New("eventbus: no matching subscribers")
	ErrUnknownKind   = errors.New("eventbus: unknown event kind")
)

type subscriber struct {
	name    string
	handler Handler
}

type publisherImpl struct {
	log         *logrus.Logger
	mu          sync.RWMutex
	kinds       map[Kind]struct{}
	subscribers map[Kind][]subscriber
}

func NewEventPublisher(log *logrus.Logger) EventBus {
	return &publisherImpl{
		log:         log,
		kinds:       make(map[Kind]struct{}),
		subscribers: make(map[Kind][]subscriber),
	}
}

func (p *publisherImpl) Declare(kinds ...Kind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range kinds {
		p.kinds[k] = struct{}{}
	}
}

func (p *publisherImpl) Publish(ctx context.Context, event Event) {
	kind := event.EventKind()
	subs, err := p.lookup(kind)
	if err != nil {
		p.logf(logrus.ErrorLevel, "eventbus.Publish: %v: %s", err, kind)
		return
	}
	if len(subs) == 0 {
		p.logf(logrus.DebugLevel, "eventbus.Publish: no matching subscribers for %s", kind)
		return
	}
	for _, s := range subs {
		if err := p.invoke(ctx, s, event); err != nil {
			if p.log != nil {
				p.log.WithFields(logrus.Fields{
					"event":   string(kind),
					"handler": s.name,
				}).WithError(err).Error("eventbus: handler failed")
			}
		}
	}
}

func (p *publisherImpl) PublishE(ctx context.Context, event Event) error {
	kind := event.EventKind()
	subs, err := p.lookup(kind)
	if err != nil {
		return fmt.Errorf("%w: %s", err, kind)
	}
	if len(subs) == 0 {
		return ErrNoSubscribers
	}
	var errs []error
	for _, s := range subs {
		if err := p.invoke(ctx, s, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *publisherImpl) invoke(ctx context.Context, s subscriber, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler %s panicked on %s: %v", s.name, event.EventKind(), r)
		}
	}()
	return s.handler(ctx, event)
}

func (p *publisherImpl) lookup(kind Kind) ([]subscriber, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.kinds[kind]; !ok {
		return nil, ErrUnknownKind
	}
	subs := make([]subscriber, len(p.subscribers[kind]))
	copy(subs, p.subscribers[kind])
	return subs, nil
}

func (p *publisherImpl) Subscribe(kind Kind, name string, handler Handler) {
	if handler == nil {
		panic("eventbus: handler must not be nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.kinds[kind]; !ok {
		panic(fmt.Sprintf("eventbus: subscribe %s to undeclared kind %s", name, kind))
	}
	p.subscribers[kind] = append(p.subscribers[kind], subscriber{name: name, handler: handler})
}

func (p *publisherImpl) Unsubscribe(kind Kind, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	subs := p.subscribers[kind]
	for i, s := range subs {
		if s.name == name {
			p.subscribers[kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func (p *publisherImpl) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = make(map[Kind][]subscriber)
}

func (p *publisherImpl) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, subs := range p.subscribers {
		n += len(subs)
	}
	return n
}

func (p *publisherImpl) logf(level logrus.Level, format string, args ...any) {
	if p.log != nil {
		p.log.Logf(level, format, args...)
	}
}

// On subscribes a handler typed to a single event struct. The kind is taken from T's zero value,
// so T must be a value type.
func On[T Event](bus EventBus, name string, fn func(ctx context.Context, event T) error) {
	var zero T
	bus.Subscribe(zero.EventKind(), name, func(ctx context.Context, event Event) error {
		typed, ok := event.(T)
		if !ok {
			return fmt.Errorf("eventbus: handler %s expected %T, got %T", name, zero, event)
		}
		return fn(ctx, typed)
	})
}
