package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestEmitDeliversInRegistrationOrder(t *testing.T) {
	bus := NewMemory(zap.NewNop())

	var order []string
	bus.Subscribe("thing:happened", func(payload any) { order = append(order, "first") })
	bus.Subscribe("thing:happened", func(payload any) { order = append(order, "second") })
	bus.Subscribe("other:event", func(payload any) { order = append(order, "wrong") })

	bus.Emit("thing:happened", 42)

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestEmitWithoutSubscribersIsNoOp(t *testing.T) {
	bus := NewMemory(zap.NewNop())
	bus.Emit("nobody:listening", "payload")
}

func TestPanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewMemory(zap.NewNop())

	reached := false
	bus.Subscribe("e", func(payload any) { panic("boom") })
	bus.Subscribe("e", func(payload any) { reached = true })

	bus.Emit("e", nil)
	assert.True(t, reached)
}

type recordingForwarder struct {
	events []string
}

func (r *recordingForwarder) Forward(event string, payload any) {
	r.events = append(r.events, event)
}

func TestForwarderRunsAfterHandlers(t *testing.T) {
	bus := NewMemory(zap.NewNop())
	fwd := &recordingForwarder{}
	bus.AttachForwarder(fwd)

	handled := false
	bus.Subscribe("e", func(payload any) {
		handled = true
		assert.Empty(t, fwd.events, "forwarder must not run before local handlers")
	})

	bus.Emit("e", "data")
	assert.True(t, handled)
	assert.Equal(t, []string{"e"}, fwd.events)
}
