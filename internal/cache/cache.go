package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"homeglow/internal/models"
)

// stateTTL bounds how long a mirrored reading survives without a refresh.
const stateTTL = time.Hour

// Cache mirrors the latest sensor readings and device state in Redis so the
// status surface can serve them without a database round trip.
type Cache struct {
	client *redis.Client
}

// NewClient creates a Redis client
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// New wraps a Redis client.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// SetSensorReadings mirrors a sensor's latest reading set.
func (c *Cache) SetSensorReadings(ctx context.Context, sensorID string, readings map[string]float64) error {
	data, err := json.Marshal(readings)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "sensor:"+sensorID, data, stateTTL).Err()
}

// SensorReadings returns the mirrored reading set, or nil when absent.
func (c *Cache) SensorReadings(ctx context.Context, sensorID string) (map[string]float64, error) {
	data, err := c.client.Get(ctx, "sensor:"+sensorID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var readings map[string]float64
	if err := json.Unmarshal(data, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

// SetDeviceState mirrors a device's power flag and state.
func (c *Cache) SetDeviceState(ctx context.Context, dev models.Device) error {
	data, err := json.Marshal(models.DeviceSnapshot{IsActive: dev.IsActive, State: dev.State})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "device:"+dev.ID, data, stateTTL).Err()
}

// DeviceState returns the mirrored snapshot, or nil when absent.
func (c *Cache) DeviceState(ctx context.Context, deviceID string) (*models.DeviceSnapshot, error) {
	data, err := c.client.Get(ctx, "device:"+deviceID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap models.DeviceSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
