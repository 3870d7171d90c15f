package api

import (
	"net/http"

	"github.com/ecofy/backend/pkg/model"
	"github.com/ecofy/backend/pkg/telemetry"
)

type registerDeviceRequest struct {
	Name         string `json:"deviceName"`
	SerialNumber string `json:"serialNumber"`
	Type         string `json:"deviceType,omitempty"`
	ContainerID  *int64 `json:"containerId,omitempty"`
	BatteryLevel *int   `json:"batteryLevel,omitempty"`
}

// RegisterDevice handles POST /devices. Duplicate serial numbers are a
// conflict; the initial status comes from server configuration. A new
// unit ships fully charged, so an omitted batteryLevel defaults to 100.
func (a *API) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}

	var req registerDeviceRequest
	if err := decode(r, &req); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if req.SerialNumber == "" {
		a.sendErrorMessage(w, http.StatusBadRequest, "missing required field: serialNumber")
		return
	}
	if req.Name == "" {
		a.sendErrorMessage(w, http.StatusBadRequest, "missing required field: deviceName")
		return
	}

	battery := 100
	if req.BatteryLevel != nil {
		battery = telemetry.ClampBatteryLevel(*req.BatteryLevel)
	}

	dev := &model.Device{
		Name:         req.Name,
		SerialNumber: req.SerialNumber,
		Type:         req.Type,
		BatteryLevel: battery,
		Status:       a.initialStatus,
		ContainerID:  req.ContainerID,
	}
	if err := a.store.CreateDevice(r.Context(), dev); err != nil {
		a.sendError(w, err)
		return
	}

	a.log.Info().Str("serial", dev.SerialNumber).Int64("device_id", dev.ID).Msg("device registered")
	a.sendData(w, http.StatusCreated, dev)
}

// ListDevices handles GET /devices.
func (a *API) ListDevices(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}

	devices, err := a.store.ListDevices(r.Context())
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, devices)
}

// GetDevice handles GET /devices/{deviceId}.
func (a *API) GetDevice(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}

	id, err := idParam(r, "deviceId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	dev, err := a.store.FindDeviceByID(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, dev)
}

// UpdateDevice handles PATCH /devices/{deviceId}. The serial number is
// not patchable.
func (a *API) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}

	id, err := idParam(r, "deviceId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch model.DevicePatch
	if err := decode(r, &patch); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	dev, err := a.store.UpdateDevice(r.Context(), id, patch)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, dev)
}

// DeleteDevice handles DELETE /devices/{deviceId}.
func (a *API) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}

	id, err := idParam(r, "deviceId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.store.DeleteDevice(r.Context(), id); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendMessage(w, http.StatusOK, "device deleted")
}

// IngestTelemetry handles POST /telemetry. The endpoint is open:
// devices authenticate by their serial number, which must already be
// registered.
func (a *API) IngestTelemetry(w http.ResponseWriter, r *http.Request) {
	var reading telemetry.Reading
	if err := decode(r, &reading); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if reading.SerialNumber == "" {
		a.sendErrorMessage(w, http.StatusBadRequest, "missing required field: serialNumber")
		return
	}

	if err := a.engine.Ingest(r.Context(), reading); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendMessage(w, http.StatusOK, "reading accepted")
}

// DeviceTelemetry handles GET /devices/{deviceId}/telemetry: the merged
// device+container snapshot for staff.
func (a *API) DeviceTelemetry(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		a.sendErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := idParam(r, "deviceId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, err := a.engine.Snapshot(r.Context(), id, p)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, snapshot)
}
