package model

import "time"

// DeviceStatus is the lifecycle state of a sensor unit.
type DeviceStatus string

const (
	DeviceActive   DeviceStatus = "active"
	DeviceInactive DeviceStatus = "inactive"
)

// Device is a sensor unit bound to at most one container. The serial
// number is assigned at registration and never changes afterwards.
type Device struct {
	ID           int64        `json:"deviceId"`
	Name         string       `json:"deviceName"`
	SerialNumber string       `json:"serialNumber"`
	Type         string       `json:"deviceType,omitempty"`
	BatteryLevel int          `json:"batteryLevel"`
	Status       DeviceStatus `json:"status"`
	LastSignal   time.Time    `json:"lastSignal"`
	ContainerID  *int64       `json:"containerId,omitempty"` // nil while unbound
}

// DevicePatch carries a partial device update. A nil field means
// "leave unchanged"; the serial number is deliberately not patchable.
type DevicePatch struct {
	Name         *string       `json:"deviceName,omitempty"`
	Type         *string       `json:"deviceType,omitempty"`
	BatteryLevel *int          `json:"batteryLevel,omitempty"`
	Status       *DeviceStatus `json:"status,omitempty"`
	ContainerID  *int64        `json:"containerId,omitempty"`
}

// Apply copies the present fields onto the device.
func (p DevicePatch) Apply(d *Device) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Type != nil {
		d.Type = *p.Type
	}
	if p.BatteryLevel != nil {
		d.BatteryLevel = *p.BatteryLevel
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.ContainerID != nil {
		d.ContainerID = p.ContainerID
	}
}
