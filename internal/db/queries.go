package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"homeglow/internal/models"
)

const sensorColumns = "sensor_id, home_id, room_id, type, location, area, is_active, readings, danger, last_update"

func scanSensor(row pgx.Row) (*models.Sensor, error) {
	var s models.Sensor
	var readings, danger []byte
	if err := row.Scan(&s.ID, &s.HomeID, &s.RoomID, &s.Kind, &s.Location, &s.Area, &s.IsActive, &readings, &danger, &s.LastUpdate); err != nil {
		return nil, err
	}
	if len(readings) > 0 {
		if err := json.Unmarshal(readings, &s.Readings); err != nil {
			return nil, fmt.Errorf("decode sensor %s readings: %w", s.ID, err)
		}
	}
	if len(danger) > 0 {
		if err := json.Unmarshal(danger, &s.Danger); err != nil {
			return nil, fmt.Errorf("decode sensor %s danger thresholds: %w", s.ID, err)
		}
	}
	return &s, nil
}

// ActiveSensors fetches all active sensors.
func (d *DB) ActiveSensors(ctx context.Context) ([]models.Sensor, error) {
	rows, err := d.pool.Query(ctx, "SELECT "+sensorColumns+" FROM sensors WHERE is_active = true")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sensors []models.Sensor
	for rows.Next() {
		s, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		sensors = append(sensors, *s)
	}
	return sensors, rows.Err()
}

// SensorByID fetches one sensor.
func (d *DB) SensorByID(ctx context.Context, id string) (*models.Sensor, error) {
	row := d.pool.QueryRow(ctx, "SELECT "+sensorColumns+" FROM sensors WHERE sensor_id = $1", id)
	return scanSensor(row)
}

// InsertSensor creates a sensor document.
func (d *DB) InsertSensor(ctx context.Context, s models.Sensor) error {
	readings, err := json.Marshal(s.Readings)
	if err != nil {
		return err
	}
	danger, err := json.Marshal(s.Danger)
	if err != nil {
		return err
	}
	_, err = d.pool.Exec(ctx,
		"INSERT INTO sensors (sensor_id, home_id, room_id, type, location, area, is_active, readings, danger, last_update) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)",
		s.ID, s.HomeID, s.RoomID, s.Kind, s.Location, s.Area, s.IsActive, readings, danger, s.LastUpdate)
	return err
}

// ApplySensorReadings writes a batch of regenerated reading sets in one round trip.
func (d *DB) ApplySensorReadings(ctx context.Context, patches []models.SensorReadingPatch) error {
	if len(patches) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range patches {
		readings, err := json.Marshal(p.Readings)
		if err != nil {
			return fmt.Errorf("encode readings for sensor %s: %w", p.SensorID, err)
		}
		batch.Queue("UPDATE sensors SET readings = $1, last_update = $2 WHERE sensor_id = $3",
			readings, p.Timestamp, p.SensorID)
	}
	return d.pool.SendBatch(ctx, batch).Close()
}

const deviceColumns = "device_id, home_id, room_id, type, is_active, state, last_update"

func scanDevice(row pgx.Row) (*models.Device, error) {
	var dev models.Device
	var state []byte
	if err := row.Scan(&dev.ID, &dev.HomeID, &dev.RoomID, &dev.Kind, &dev.IsActive, &state, &dev.LastUpdate); err != nil {
		return nil, err
	}
	if len(state) > 0 {
		if err := json.Unmarshal(state, &dev.State); err != nil {
			return nil, fmt.Errorf("decode device %s state: %w", dev.ID, err)
		}
	}
	return &dev, nil
}

// DeviceByID fetches one device.
func (d *DB) DeviceByID(ctx context.Context, id string) (*models.Device, error) {
	row := d.pool.QueryRow(ctx, "SELECT "+deviceColumns+" FROM devices WHERE device_id = $1", id)
	return scanDevice(row)
}

// ActiveDevicesByKind fetches all powered-on devices of one kind.
func (d *DB) ActiveDevicesByKind(ctx context.Context, kind models.DeviceKind) ([]models.Device, error) {
	rows, err := d.pool.Query(ctx, "SELECT "+deviceColumns+" FROM devices WHERE type = $1 AND is_active = true", kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		dev, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *dev)
	}
	return devices, rows.Err()
}

// InsertDevice creates a device document.
func (d *DB) InsertDevice(ctx context.Context, dev models.Device) error {
	state, err := json.Marshal(dev.State)
	if err != nil {
		return err
	}
	_, err = d.pool.Exec(ctx,
		"INSERT INTO devices (device_id, home_id, room_id, type, is_active, state, last_update) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		dev.ID, dev.HomeID, dev.RoomID, dev.Kind, dev.IsActive, state, dev.LastUpdate)
	return err
}

// SaveDevice persists a device's power flag, state and last update.
func (d *DB) SaveDevice(ctx context.Context, dev models.Device) error {
	state, err := json.Marshal(dev.State)
	if err != nil {
		return err
	}
	_, err = d.pool.Exec(ctx,
		"UPDATE devices SET is_active = $1, state = $2, last_update = $3 WHERE device_id = $4",
		dev.IsActive, state, dev.LastUpdate, dev.ID)
	return err
}

// ApplyDeviceLoads writes a batch of plug load changes in one round trip.
func (d *DB) ApplyDeviceLoads(ctx context.Context, patches []models.DeviceLoadPatch) error {
	if len(patches) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range patches {
		batch.Queue(
			"UPDATE devices SET state = jsonb_set(COALESCE(state, '{}'::jsonb), '{currentLoad}', to_jsonb($1::double precision)), last_update = $2 WHERE device_id = $3",
			p.Load, p.Timestamp, p.DeviceID)
	}
	return d.pool.SendBatch(ctx, batch).Close()
}

// RoomKind returns the room's category tag ("kitchen", "office", ...), or
// "custom" when the room is unknown.
func (d *DB) RoomKind(ctx context.Context, roomID string) (string, error) {
	if roomID == "" {
		return "custom", nil
	}
	var kind string
	err := d.pool.QueryRow(ctx, "SELECT type FROM rooms WHERE room_id = $1", roomID).Scan(&kind)
	if err == pgx.ErrNoRows {
		return "custom", nil
	}
	if err != nil {
		return "", err
	}
	return kind, nil
}

const automationColumns = "automation_id, home_id, name, is_active, trigger_type, time_trigger, sensor_trigger, device_action"

func scanAutomation(row pgx.Row) (*models.Automation, error) {
	var a models.Automation
	var timeTrigger, sensorTrigger, deviceAction []byte
	if err := row.Scan(&a.ID, &a.HomeID, &a.Name, &a.IsActive, &a.TriggerType, &timeTrigger, &sensorTrigger, &deviceAction); err != nil {
		return nil, err
	}
	if len(timeTrigger) > 0 {
		if err := json.Unmarshal(timeTrigger, &a.TimeTrigger); err != nil {
			return nil, fmt.Errorf("decode automation %s time trigger: %w", a.ID, err)
		}
	}
	if len(sensorTrigger) > 0 {
		if err := json.Unmarshal(sensorTrigger, &a.SensorTrigger); err != nil {
			return nil, fmt.Errorf("decode automation %s sensor trigger: %w", a.ID, err)
		}
	}
	if len(deviceAction) > 0 {
		if err := json.Unmarshal(deviceAction, &a.DeviceAction); err != nil {
			return nil, fmt.Errorf("decode automation %s device action: %w", a.ID, err)
		}
	}
	return &a, nil
}

// AutomationByID fetches one automation.
func (d *DB) AutomationByID(ctx context.Context, id string) (*models.Automation, error) {
	row := d.pool.QueryRow(ctx, "SELECT "+automationColumns+" FROM automations WHERE automation_id = $1", id)
	return scanAutomation(row)
}

// ActiveAutomationsByTrigger fetches all active automations of one trigger type.
func (d *DB) ActiveAutomationsByTrigger(ctx context.Context, triggerType string) ([]models.Automation, error) {
	rows, err := d.pool.Query(ctx, "SELECT "+automationColumns+" FROM automations WHERE is_active = true AND trigger_type = $1", triggerType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var automations []models.Automation
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, err
		}
		automations = append(automations, *a)
	}
	return automations, rows.Err()
}

// AppendSensorLogs inserts measurement log rows in one round trip.
func (d *DB) AppendSensorLogs(ctx context.Context, entries []models.SensorLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		readings, err := json.Marshal(e.Readings)
		if err != nil {
			return fmt.Errorf("encode log readings for sensor %s: %w", e.SensorID, err)
		}
		batch.Queue(
			"INSERT INTO sensor_logs (log_id, home_id, room_id, sensor_id, sensor_type, type, readings, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
			e.ID, e.HomeID, e.RoomID, e.SensorID, e.Kind, e.Type, readings, e.Timestamp)
	}
	return d.pool.SendBatch(ctx, batch).Close()
}

// AppendDeviceLog inserts one device log row.
func (d *DB) AppendDeviceLog(ctx context.Context, e models.DeviceLogEntry) error {
	params, err := json.Marshal(e.Parameters)
	if err != nil {
		return err
	}
	prev, err := json.Marshal(e.PreviousState)
	if err != nil {
		return err
	}
	next, err := json.Marshal(e.NewState)
	if err != nil {
		return err
	}
	details, err := json.Marshal(e.Details)
	if err != nil {
		return err
	}
	_, err = d.pool.Exec(ctx,
		"INSERT INTO device_logs (log_id, home_id, room_id, device_id, device_type, type, action, parameters, previous_state, new_state, success, error, details, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)",
		e.ID, e.HomeID, e.RoomID, e.DeviceID, e.Kind, e.Type, e.Action, params, prev, next, e.Success, e.Error, details, e.Timestamp)
	return err
}

// AppendDeviceLogs inserts device log rows in one round trip.
func (d *DB) AppendDeviceLogs(ctx context.Context, entries []models.DeviceLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		params, err := json.Marshal(e.Parameters)
		if err != nil {
			return err
		}
		prev, err := json.Marshal(e.PreviousState)
		if err != nil {
			return err
		}
		next, err := json.Marshal(e.NewState)
		if err != nil {
			return err
		}
		details, err := json.Marshal(e.Details)
		if err != nil {
			return err
		}
		batch.Queue(
			"INSERT INTO device_logs (log_id, home_id, room_id, device_id, device_type, type, action, parameters, previous_state, new_state, success, error, details, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)",
			e.ID, e.HomeID, e.RoomID, e.DeviceID, e.Kind, e.Type, e.Action, params, prev, next, e.Success, e.Error, details, e.Timestamp)
	}
	return d.pool.SendBatch(ctx, batch).Close()
}
