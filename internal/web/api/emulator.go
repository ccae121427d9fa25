// Package api holds the HTTP handlers of the admin surface.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homeglow/internal/emulator"
	"homeglow/internal/models"
	"homeglow/internal/taskqueue"
)

// EmulatorHandler exposes the emulation service over HTTP. Control and
// automation notifications go through the task queue; the enqueue functions
// are swappable for tests.
type EmulatorHandler struct {
	svc    *emulator.Service
	logger *zap.Logger

	enqueueControl func(models.ControlRequest) error
	enqueueNotice  func(models.AutomationNotice) error
}

// NewEmulatorHandler wires the handler to the service and the task queue.
func NewEmulatorHandler(svc *emulator.Service, logger *zap.Logger) *EmulatorHandler {
	return &EmulatorHandler{
		svc:            svc,
		logger:         logger,
		enqueueControl: taskqueue.EnqueueDeviceControl,
		enqueueNotice:  taskqueue.EnqueueAutomationNotice,
	}
}

// Register mounts the emulator routes on the group.
func (h *EmulatorHandler) Register(r *gin.RouterGroup) {
	r.POST("/emulator/start", h.start)
	r.POST("/emulator/stop", h.stop)
	r.POST("/emulator/update", h.immediateUpdate)
	r.GET("/emulator/status", h.status)
	r.POST("/emulator/devices", h.createDevice)
	r.POST("/emulator/devices/:id", h.configureDevice)
	r.GET("/emulator/devices/:id", h.deviceStatus)
	r.POST("/emulator/sensors", h.createSensor)
	r.GET("/emulator/sensors/:id", h.sensorReadings)
	r.POST("/emulator/control", h.control)
	r.POST("/emulator/automations/notify", h.notifyAutomation)
}

type startRequest struct {
	UpdateIntervalMS int64 `json:"updateIntervalMs"`
}

func (h *EmulatorHandler) start(c *gin.Context) {
	var req startRequest
	_ = c.ShouldBindJSON(&req) // empty body keeps the configured interval

	if req.UpdateIntervalMS > 0 {
		if err := h.svc.ConfigureBatchUpdates(time.Duration(req.UpdateIntervalMS) * time.Millisecond); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if err := h.svc.StartAll(c.Request.Context()); err != nil {
		h.logger.Error("start emulation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *EmulatorHandler) stop(c *gin.Context) {
	h.svc.StopAll()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *EmulatorHandler) immediateUpdate(c *gin.Context) {
	// detached from the request context: the pass outlives the response
	go h.svc.TriggerImmediateUpdate(context.Background())
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

func (h *EmulatorHandler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status())
}

type configureDeviceRequest struct {
	Emulated *bool `json:"emulated" binding:"required"`
}

func (h *EmulatorHandler) configureDevice(c *gin.Context) {
	var req configureDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "emulated flag is required"})
		return
	}
	if err := h.svc.ConfigureDevice(c.Request.Context(), c.Param("id"), *req.Emulated); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *EmulatorHandler) deviceStatus(c *gin.Context) {
	status, err := h.svc.DeviceStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *EmulatorHandler) sensorReadings(c *gin.Context) {
	readings, err := h.svc.SensorReadings(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sensorId": c.Param("id"), "readings": readings})
}

func (h *EmulatorHandler) control(c *gin.Context) {
	var req models.ControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DeviceID == "" || req.Action == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deviceId and action are required"})
		return
	}
	if err := h.enqueueControl(req); err != nil {
		h.logger.Error("enqueue device control failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

func (h *EmulatorHandler) notifyAutomation(c *gin.Context) {
	var notice models.AutomationNotice
	if err := c.ShouldBindJSON(&notice); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if notice.AutomationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "automationId is required"})
		return
	}
	if err := h.enqueueNotice(notice); err != nil {
		h.logger.Error("enqueue automation notice failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

type createSensorRequest struct {
	ID       string             `json:"id"`
	HomeID   string             `json:"homeId" binding:"required"`
	RoomID   string             `json:"roomId"`
	Kind     models.SensorKind  `json:"sensorType" binding:"required"`
	Location string             `json:"location"`
	Area     string             `json:"area"`
	IsActive *bool              `json:"isActive"`
	Danger   map[string]float64 `json:"danger"`
}

func (h *EmulatorHandler) createSensor(c *gin.Context) {
	var req createSensorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	sensor, err := h.svc.EnrichNewSensor(c.Request.Context(), models.Sensor{
		ID:       req.ID,
		HomeID:   req.HomeID,
		RoomID:   req.RoomID,
		Kind:     req.Kind,
		Location: req.Location,
		Area:     req.Area,
		IsActive: active,
		Danger:   req.Danger,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sensor)
}

type createDeviceRequest struct {
	ID       string             `json:"id"`
	HomeID   string             `json:"homeId" binding:"required"`
	RoomID   string             `json:"roomId"`
	Kind     models.DeviceKind  `json:"deviceType" binding:"required"`
	IsActive *bool              `json:"isActive"`
	State    models.DeviceState `json:"state"`
}

func (h *EmulatorHandler) createDevice(c *gin.Context) {
	var req createDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	dev, err := h.svc.EnrichNewDevice(c.Request.Context(), models.Device{
		ID:       req.ID,
		HomeID:   req.HomeID,
		RoomID:   req.RoomID,
		Kind:     req.Kind,
		IsActive: active,
		State:    req.State,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, dev)
}
