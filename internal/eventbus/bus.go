package eventbus

import (
	"sync"

	"go.uber.org/zap"
)

// Event names carried on the bus. The names and payload shapes are part of
// the wire contract with real-time clients.
const (
	EventSensorsBatch       = "sensors:batch-update"
	EventDevicesBatch       = "devices:batch-update"
	EventDeviceUpdate       = "device:update"
	EventDeviceStatus       = "device:status"
	EventAutomationExecuted = "automation:executed"
	EventAutomationUpdate   = "automation:update"
	EventDeviceControl      = "device:control"
)

// Handler receives an event payload. Handlers run synchronously on the
// emitting goroutine, in registration order.
type Handler func(payload any)

// Bus is the publish/subscribe contract the emulator core depends on.
type Bus interface {
	Emit(event string, payload any)
	Subscribe(event string, h Handler)
}

// Forwarder receives every emitted event after local handlers ran, for
// fan-out to an external transport.
type Forwarder interface {
	Forward(event string, payload any)
}

// Memory is an in-process Bus with at-least-once, in-registration-order
// delivery for synchronous handlers.
type Memory struct {
	mu         sync.RWMutex
	handlers   map[string][]Handler
	forwarders []Forwarder
	logger     *zap.Logger
}

// NewMemory creates an in-process bus.
func NewMemory(logger *zap.Logger) *Memory {
	return &Memory{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event.
func (b *Memory) Subscribe(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// AttachForwarder adds an external fan-out target. Forwarders run after all
// local handlers.
func (b *Memory) AttachForwarder(f Forwarder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forwarders = append(b.forwarders, f)
}

// Emit delivers the payload to every registered handler in order, then to
// the forwarders. A panicking handler is logged and does not stop delivery
// to the rest.
func (b *Memory) Emit(event string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event]))
	copy(handlers, b.handlers[event])
	forwarders := make([]Forwarder, len(b.forwarders))
	copy(forwarders, b.forwarders)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(event, h, payload)
	}
	for _, f := range forwarders {
		f.Forward(event, payload)
	}
}

func (b *Memory) dispatch(event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event", event),
				zap.Any("panic", r),
			)
		}
	}()
	h(payload)
}
