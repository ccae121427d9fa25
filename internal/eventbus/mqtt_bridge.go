package eventbus

import (
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"homeglow/internal/models"
)

// MQTTBridge fans emitted events out to MQTT under events/<name> and feeds
// inbound control topics back onto the local bus.
type MQTTBridge struct {
	client mqtt.Client
	bus    *Memory
	logger *zap.Logger
}

// NewMQTTBridge creates the bridge. Call Run to subscribe the inbound
// topics, and AttachForwarder(bridge) on the bus for the outbound side.
func NewMQTTBridge(client mqtt.Client, bus *Memory, logger *zap.Logger) *MQTTBridge {
	return &MQTTBridge{client: client, bus: bus, logger: logger}
}

// Forward publishes the event payload as JSON to events/<name>.
func (m *MQTTBridge) Forward(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("failed to marshal event payload",
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}
	m.client.Publish("events/"+event, 1, false, data)
}

// Run subscribes the inbound device:control and automation:update topics and
// re-emits decoded payloads on the local bus.
func (m *MQTTBridge) Run() error {
	if token := m.client.Subscribe("events/"+EventDeviceControl, 1, m.onControl); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := m.client.Subscribe("events/"+EventAutomationUpdate, 1, m.onAutomationUpdate); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (m *MQTTBridge) onControl(_ mqtt.Client, msg mqtt.Message) {
	var req models.ControlRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		m.logger.Warn("invalid device:control payload", zap.Error(err))
		return
	}
	m.bus.Emit(EventDeviceControl, req)
}

func (m *MQTTBridge) onAutomationUpdate(_ mqtt.Client, msg mqtt.Message) {
	var notice models.AutomationNotice
	if err := json.Unmarshal(msg.Payload(), &notice); err != nil {
		m.logger.Warn("invalid automation:update payload", zap.Error(err))
		return
	}
	m.bus.Emit(EventAutomationUpdate, notice)
}
