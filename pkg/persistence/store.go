// Package persistence defines the storage contracts for the Ecofy
// backend and provides PostgreSQL and in-memory implementations.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/ecofy/backend/pkg/auth"
	"github.com/ecofy/backend/pkg/model"
)

var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("resource conflict / already exists")
)

// DeviceStore persists sensor units.
type DeviceStore interface {
	// CreateDevice stores a new device and fills in its ID. Returns
	// ErrConflict if the serial number is already registered.
	CreateDevice(ctx context.Context, d *model.Device) error

	FindDeviceByID(ctx context.Context, id int64) (*model.Device, error)
	FindDeviceBySerial(ctx context.Context, serial string) (*model.Device, error)
	ListDevices(ctx context.Context) ([]*model.Device, error)

	// UpdateDevice applies a patch and returns the updated row.
	UpdateDevice(ctx context.Context, id int64, patch model.DevicePatch) (*model.Device, error)
	DeleteDevice(ctx context.Context, id int64) error
}

// ApplyFunc mutates the locked device and container rows of one
// ingestion and returns the notifications to insert alongside them.
// cont is nil when the device is not bound to a container; returning
// an error aborts the whole transaction.
type ApplyFunc func(dev *model.Device, cont *model.Container) ([]model.Notification, error)

// TelemetryStore runs a telemetry reading as a single transaction.
type TelemetryStore interface {
	// ApplyReading locks the device identified by serial and its bound
	// container, invokes apply, then persists the device's battery
	// level, status and last-signal timestamp, the container's fill
	// level, temperature, tilt flag, status and last-update timestamp,
	// and the returned notifications. All of it commits atomically or
	// not at all. Returns ErrNotFound for an unknown serial. A bound
	// container that cannot be resolved is reported as a plain error:
	// that is store corruption, not a caller mistake.
	ApplyReading(ctx context.Context, serial string, apply ApplyFunc) error
}

// ContainerStore persists waste receptacles.
type ContainerStore interface {
	// CreateContainer stores a new container. Returns ErrNotFound if
	// the referenced site does not exist.
	CreateContainer(ctx context.Context, c *model.Container) error

	FindContainerByID(ctx context.Context, id int64) (*model.Container, error)

	// ListContainers returns all containers, or only those on the
	// given organization's sites when orgID is non-nil.
	ListContainers(ctx context.Context, orgID *int64) ([]*model.Container, error)
	ListContainersBySite(ctx context.Context, siteID int64) ([]*model.Container, error)

	UpdateContainer(ctx context.Context, id int64, patch model.ContainerPatch) (*model.Container, error)
	DeleteContainer(ctx context.Context, id int64) error
}

// SiteStore persists container sites.
type SiteStore interface {
	CreateSite(ctx context.Context, s *model.ContainerSite) error
	FindSiteByID(ctx context.Context, id int64) (*model.ContainerSite, error)
	ListSites(ctx context.Context, orgID *int64) ([]*model.ContainerSite, error)
	UpdateSite(ctx context.Context, id int64, patch model.ContainerSitePatch) (*model.ContainerSite, error)

	// DeleteSite refuses with ErrConflict while containers or pickups
	// still reference the site.
	DeleteSite(ctx context.Context, id int64) error
}

// NotificationStore persists the insert-only notification feed.
type NotificationStore interface {
	InsertNotifications(ctx context.Context, ns []model.Notification) error
	ListAllNotifications(ctx context.Context) ([]*model.Notification, error)

	// ListNotificationsForOrganization returns notifications attached
	// to the organization's sites, newest first.
	ListNotificationsForOrganization(ctx context.Context, orgID int64) ([]*model.Notification, error)

	// ListUserNotifications returns a user's notifications of one
	// message type, newest first.
	ListUserNotifications(ctx context.Context, userID int64, messageType string) ([]*model.Notification, error)

	DeleteNotification(ctx context.Context, id int64) error
}

// PickupStore persists collection runs.
type PickupStore interface {
	CreatePickup(ctx context.Context, p *model.Pickup) error
	FindPickupByID(ctx context.Context, id int64) (*model.Pickup, error)
	ListPickups(ctx context.Context, orgID *int64) ([]*model.Pickup, error)
	AssignVehicle(ctx context.Context, pickupID, vehicleID int64) error

	// CompletePickup stamps the completion time and resets every
	// container at the pickup's site (fill level 0, status "empty",
	// last_update = completedAt) in one transaction.
	CompletePickup(ctx context.Context, pickupID int64, completedAt time.Time) error

	DeletePickup(ctx context.Context, id int64) error
	PickupStatistics(ctx context.Context, orgID *int64, from, to *time.Time) (model.PickupStatistics, error)
}

// VehicleStore persists collection trucks.
type VehicleStore interface {
	// CreateVehicle returns ErrConflict on a duplicate number plate.
	CreateVehicle(ctx context.Context, v *model.Vehicle) error
	FindVehicleByID(ctx context.Context, id int64) (*model.Vehicle, error)
	ListVehicles(ctx context.Context, orgID *int64) ([]*model.Vehicle, error)
	DeleteVehicle(ctx context.Context, id int64) error
}

// OrganizationStore persists waste-management operators.
type OrganizationStore interface {
	ListOrganizations(ctx context.Context) ([]*model.Organization, error)
	FindOrganizationByID(ctx context.Context, id int64) (*model.Organization, error)

	// UpdateOrganization returns ErrConflict when the patch would take
	// an email already held by another organization.
	UpdateOrganization(ctx context.Context, id int64, patch model.OrganizationPatch) (*model.Organization, error)
	SetOrganizationStatus(ctx context.Context, id int64, active bool) error
}

// UserStore persists residents.
type UserStore interface {
	// CreateUser returns ErrConflict on a duplicate email.
	CreateUser(ctx context.Context, u *model.User) error
	FindUserByID(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	ListUsersByCity(ctx context.Context, city string) ([]*model.User, error)
	UpdateUser(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error)
	SetUserStatus(ctx context.Context, id int64, active bool) error
	DeleteUser(ctx context.Context, id int64) error
}

// ClientCompanyStore persists disposal clients.
type ClientCompanyStore interface {
	ListClientCompanies(ctx context.Context) ([]*model.ClientCompany, error)
	FindClientCompanyByID(ctx context.Context, id int64) (*model.ClientCompany, error)
	SetClientCompanyStatus(ctx context.Context, id int64, active bool) error
}

// DisposalRequestStore persists waste disposal requests.
type DisposalRequestStore interface {
	CreateDisposalRequest(ctx context.Context, r *model.DisposalRequest) error
	FindDisposalRequestByID(ctx context.Context, id int64) (*model.DisposalRequest, error)
	ListDisposalRequests(ctx context.Context, orgID, clientID *int64) ([]*model.DisposalRequest, error)
	UpdateDisposalRequestStatus(ctx context.Context, id int64, status string, updatedAt time.Time) (*model.DisposalRequest, error)
}

// TokenStore resolves opaque API tokens to principals.
type TokenStore interface {
	ResolveToken(ctx context.Context, token string) (auth.Principal, error)
}

// AnalyticsStore serves the activity reports.
type AnalyticsStore interface {
	ClientCompanyActivity(ctx context.Context) ([]*model.ClientCompanyActivity, error)
	OrganizationActivity(ctx context.Context) ([]*model.OrganizationActivity, error)
}

// Store is the combined interface the server wires together.
type Store interface {
	DeviceStore
	TelemetryStore
	ContainerStore
	SiteStore
	NotificationStore
	PickupStore
	VehicleStore
	OrganizationStore
	UserStore
	ClientCompanyStore
	DisposalRequestStore
	TokenStore
	AnalyticsStore

	Close()
}
