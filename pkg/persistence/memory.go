package persistence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ecofy/backend/pkg/auth"
	"github.com/ecofy/backend/pkg/model"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a mutex-guarded in-memory Store. It backs the unit
// tests and the STORE=memory development mode; the single mutex gives
// ApplyReading the same serialization the Postgres row locks provide.
type MemoryStore struct {
	mu sync.Mutex

	devices       map[int64]*model.Device
	containers    map[int64]*model.Container
	sites         map[int64]*model.ContainerSite
	notifications map[int64]*model.Notification
	pickups       map[int64]*model.Pickup
	vehicles      map[int64]*model.Vehicle
	organizations map[int64]*model.Organization
	users         map[int64]*model.User
	clients       map[int64]*model.ClientCompany
	requests      map[int64]*model.DisposalRequest
	tokens        map[string]auth.Principal

	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices:       make(map[int64]*model.Device),
		containers:    make(map[int64]*model.Container),
		sites:         make(map[int64]*model.ContainerSite),
		notifications: make(map[int64]*model.Notification),
		pickups:       make(map[int64]*model.Pickup),
		vehicles:      make(map[int64]*model.Vehicle),
		organizations: make(map[int64]*model.Organization),
		users:         make(map[int64]*model.User),
		clients:       make(map[int64]*model.ClientCompany),
		requests:      make(map[int64]*model.DisposalRequest),
		tokens:        make(map[string]auth.Principal),
	}
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) nextSeq() int64 {
	s.nextID++
	return s.nextID
}

// AddToken registers an API token; for tests and dev seeding.
func (s *MemoryStore) AddToken(token string, p auth.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = p
}

// --- Devices ---

func (s *MemoryStore) CreateDevice(_ context.Context, d *model.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.devices {
		if existing.SerialNumber == d.SerialNumber {
			return fmt.Errorf("%w: device with serial %q already exists", ErrConflict, d.SerialNumber)
		}
	}
	if d.ContainerID != nil {
		if _, ok := s.containers[*d.ContainerID]; !ok {
			return fmt.Errorf("%w: container %d not found", ErrNotFound, *d.ContainerID)
		}
	}
	d.ID = s.nextSeq()
	cp := *d
	s.devices[d.ID] = &cp
	return nil
}

func (s *MemoryStore) FindDeviceByID(_ context.Context, id int64) (*model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: device %d not found", ErrNotFound, id)
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) FindDeviceBySerial(_ context.Context, serial string) (*model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d.SerialNumber == serial {
			cp := *d
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: device with serial %q not registered", ErrNotFound, serial)
}

func (s *MemoryStore) ListDevices(_ context.Context) ([]*model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	devices := make([]*model.Device, 0, len(s.devices))
	for _, d := range s.devices {
		cp := *d
		devices = append(devices, &cp)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

func (s *MemoryStore) UpdateDevice(_ context.Context, id int64, patch model.DevicePatch) (*model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: device %d not found", ErrNotFound, id)
	}
	if patch.ContainerID != nil {
		if _, ok := s.containers[*patch.ContainerID]; !ok {
			return nil, fmt.Errorf("%w: container %d not found", ErrNotFound, *patch.ContainerID)
		}
	}
	patch.Apply(d)
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) DeleteDevice(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[id]; !ok {
		return fmt.Errorf("%w: device %d not found", ErrNotFound, id)
	}
	delete(s.devices, id)
	return nil
}

// ApplyReading mirrors the Postgres transaction: the mutex is held for
// the whole read-apply-write cycle, so nothing is visible unless apply
// succeeds, and concurrent readings serialize.
func (s *MemoryStore) ApplyReading(_ context.Context, serial string, apply ApplyFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dev *model.Device
	for _, d := range s.devices {
		if d.SerialNumber == serial {
			dev = d
			break
		}
	}
	if dev == nil {
		return fmt.Errorf("%w: device with serial %q not registered", ErrNotFound, serial)
	}

	var cont *model.Container
	var contCopy model.Container
	if dev.ContainerID != nil {
		stored, ok := s.containers[*dev.ContainerID]
		if !ok {
			return fmt.Errorf("device %d bound to missing container %d", dev.ID, *dev.ContainerID)
		}
		contCopy = *stored
		cont = &contCopy
	}

	devCopy := *dev
	notifications, err := apply(&devCopy, cont)
	if err != nil {
		return err
	}

	*dev = devCopy
	if cont != nil {
		*s.containers[cont.ID] = *cont
	}
	for _, n := range notifications {
		n.ID = s.nextSeq()
		cp := n
		s.notifications[n.ID] = &cp
	}
	return nil
}

// --- Containers ---

func (s *MemoryStore) CreateContainer(_ context.Context, c *model.Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sites[c.SiteID]; !ok {
		return fmt.Errorf("%w: container site %d not found", ErrNotFound, c.SiteID)
	}
	c.ID = s.nextSeq()
	cp := *c
	s.containers[c.ID] = &cp
	return nil
}

func (s *MemoryStore) FindContainerByID(_ context.Context, id int64) (*model.Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[id]
	if !ok {
		return nil, fmt.Errorf("%w: container %d not found", ErrNotFound, id)
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListContainers(_ context.Context, orgID *int64) ([]*model.Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	containers := []*model.Container{}
	for _, c := range s.containers {
		if orgID != nil {
			site, ok := s.sites[c.SiteID]
			if !ok || site.OrganizationID != *orgID {
				continue
			}
		}
		cp := *c
		containers = append(containers, &cp)
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].ID < containers[j].ID })
	return containers, nil
}

func (s *MemoryStore) ListContainersBySite(_ context.Context, siteID int64) ([]*model.Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	containers := []*model.Container{}
	for _, c := range s.containers {
		if c.SiteID == siteID {
			cp := *c
			containers = append(containers, &cp)
		}
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].ID < containers[j].ID })
	return containers, nil
}

func (s *MemoryStore) UpdateContainer(_ context.Context, id int64, patch model.ContainerPatch) (*model.Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[id]
	if !ok {
		return nil, fmt.Errorf("%w: container %d not found", ErrNotFound, id)
	}
	if patch.SiteID != nil {
		if _, ok := s.sites[*patch.SiteID]; !ok {
			return nil, fmt.Errorf("%w: container site %d not found", ErrNotFound, *patch.SiteID)
		}
	}
	patch.Apply(c)
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) DeleteContainer(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[id]; !ok {
		return fmt.Errorf("%w: container %d not found", ErrNotFound, id)
	}
	delete(s.containers, id)
	return nil
}

// --- Container sites ---

func (s *MemoryStore) CreateSite(_ context.Context, site *model.ContainerSite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.organizations[site.OrganizationID]; !ok {
		return fmt.Errorf("%w: organization %d not found", ErrNotFound, site.OrganizationID)
	}
	site.ID = s.nextSeq()
	cp := *site
	s.sites[site.ID] = &cp
	return nil
}

func (s *MemoryStore) FindSiteByID(_ context.Context, id int64) (*model.ContainerSite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[id]
	if !ok {
		return nil, fmt.Errorf("%w: container site %d not found", ErrNotFound, id)
	}
	cp := *site
	return &cp, nil
}

func (s *MemoryStore) ListSites(_ context.Context, orgID *int64) ([]*model.ContainerSite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sites := []*model.ContainerSite{}
	for _, site := range s.sites {
		if orgID != nil && site.OrganizationID != *orgID {
			continue
		}
		cp := *site
		sites = append(sites, &cp)
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].ID < sites[j].ID })
	return sites, nil
}

func (s *MemoryStore) UpdateSite(_ context.Context, id int64, patch model.ContainerSitePatch) (*model.ContainerSite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[id]
	if !ok {
		return nil, fmt.Errorf("%w: container site %d not found", ErrNotFound, id)
	}
	patch.Apply(site)
	cp := *site
	return &cp, nil
}

func (s *MemoryStore) DeleteSite(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sites[id]; !ok {
		return fmt.Errorf("%w: container site %d not found", ErrNotFound, id)
	}
	for _, c := range s.containers {
		if c.SiteID == id {
			return fmt.Errorf("%w: cannot delete container site %d, containers are attached", ErrConflict, id)
		}
	}
	for _, p := range s.pickups {
		if p.SiteID == id {
			return fmt.Errorf("%w: cannot delete container site %d, pickups are attached", ErrConflict, id)
		}
	}
	delete(s.sites, id)
	return nil
}

// --- Notifications ---

func (s *MemoryStore) InsertNotifications(_ context.Context, ns []model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range ns {
		n.ID = s.nextSeq()
		cp := n
		s.notifications[n.ID] = &cp
	}
	return nil
}

func (s *MemoryStore) listNotifications(match func(*model.Notification) bool) []*model.Notification {
	notifications := []*model.Notification{}
	for _, n := range s.notifications {
		if match(n) {
			cp := *n
			notifications = append(notifications, &cp)
		}
	}
	sort.Slice(notifications, func(i, j int) bool {
		if notifications[i].CreatedAt.Equal(notifications[j].CreatedAt) {
			return notifications[i].ID > notifications[j].ID
		}
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications
}

func (s *MemoryStore) ListAllNotifications(_ context.Context) ([]*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listNotifications(func(*model.Notification) bool { return true }), nil
}

func (s *MemoryStore) ListNotificationsForOrganization(_ context.Context, orgID int64) ([]*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listNotifications(func(n *model.Notification) bool {
		if n.SiteID == nil {
			return false
		}
		site, ok := s.sites[*n.SiteID]
		return ok && site.OrganizationID == orgID
	}), nil
}

func (s *MemoryStore) ListUserNotifications(_ context.Context, userID int64, messageType string) ([]*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listNotifications(func(n *model.Notification) bool {
		return n.UserID != nil && *n.UserID == userID && n.MessageType == messageType
	}), nil
}

func (s *MemoryStore) DeleteNotification(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[id]; !ok {
		return fmt.Errorf("%w: notification %d not found", ErrNotFound, id)
	}
	delete(s.notifications, id)
	return nil
}

// --- Pickups ---

func (s *MemoryStore) CreatePickup(_ context.Context, p *model.Pickup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sites[p.SiteID]; !ok {
		return fmt.Errorf("%w: container site %d not found", ErrNotFound, p.SiteID)
	}
	p.ID = s.nextSeq()
	cp := *p
	s.pickups[p.ID] = &cp
	return nil
}

func (s *MemoryStore) FindPickupByID(_ context.Context, id int64) (*model.Pickup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pickups[id]
	if !ok {
		return nil, fmt.Errorf("%w: pickup %d not found", ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListPickups(_ context.Context, orgID *int64) ([]*model.Pickup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pickups := []*model.Pickup{}
	for _, p := range s.pickups {
		if orgID != nil {
			site, ok := s.sites[p.SiteID]
			if !ok || site.OrganizationID != *orgID {
				continue
			}
		}
		cp := *p
		pickups = append(pickups, &cp)
	}
	sort.Slice(pickups, func(i, j int) bool { return pickups[i].ScheduledTime.Before(pickups[j].ScheduledTime) })
	return pickups, nil
}

func (s *MemoryStore) AssignVehicle(_ context.Context, pickupID, vehicleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pickups[pickupID]
	if !ok {
		return fmt.Errorf("%w: pickup %d not found", ErrNotFound, pickupID)
	}
	if _, ok := s.vehicles[vehicleID]; !ok {
		return fmt.Errorf("%w: vehicle %d not found", ErrNotFound, vehicleID)
	}
	p.VehicleID = &vehicleID
	return nil
}

func (s *MemoryStore) CompletePickup(_ context.Context, pickupID int64, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pickups[pickupID]
	if !ok {
		return fmt.Errorf("%w: pickup %d not found", ErrNotFound, pickupID)
	}
	p.CompletedTime = &completedAt
	for _, c := range s.containers {
		if c.SiteID == p.SiteID {
			c.FillLevel = 0
			c.Status = "empty"
			c.LastUpdate = completedAt
		}
	}
	return nil
}

func (s *MemoryStore) DeletePickup(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pickups[id]; !ok {
		return fmt.Errorf("%w: pickup %d not found", ErrNotFound, id)
	}
	delete(s.pickups, id)
	return nil
}

func (s *MemoryStore) PickupStatistics(_ context.Context, orgID *int64, from, to *time.Time) (model.PickupStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats model.PickupStatistics
	for _, p := range s.pickups {
		if orgID != nil {
			site, ok := s.sites[p.SiteID]
			if !ok || site.OrganizationID != *orgID {
				continue
			}
		}
		if from != nil && p.ScheduledTime.Before(*from) {
			continue
		}
		if to != nil && p.ScheduledTime.After(*to) {
			continue
		}
		stats.TotalPickups++
		if p.CompletedTime != nil {
			stats.CompletedPickups++
		}
	}
	return stats, nil
}

// --- Vehicles ---

func (s *MemoryStore) CreateVehicle(_ context.Context, v *model.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.vehicles {
		if existing.NumberPlate == v.NumberPlate {
			return fmt.Errorf("%w: vehicle with plate %q already exists", ErrConflict, v.NumberPlate)
		}
	}
	v.ID = s.nextSeq()
	cp := *v
	s.vehicles[v.ID] = &cp
	return nil
}

func (s *MemoryStore) FindVehicleByID(_ context.Context, id int64) (*model.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("%w: vehicle %d not found", ErrNotFound, id)
	}
	cp := *v
	return &cp, nil
}

func (s *MemoryStore) ListVehicles(_ context.Context, orgID *int64) ([]*model.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vehicles := []*model.Vehicle{}
	for _, v := range s.vehicles {
		if orgID != nil && v.OrganizationID != *orgID {
			continue
		}
		cp := *v
		vehicles = append(vehicles, &cp)
	}
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].ID < vehicles[j].ID })
	return vehicles, nil
}

func (s *MemoryStore) DeleteVehicle(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[id]; !ok {
		return fmt.Errorf("%w: vehicle %d not found", ErrNotFound, id)
	}
	delete(s.vehicles, id)
	return nil
}

// --- Organizations ---

// AddOrganization seeds an organization; for tests and dev mode.
func (s *MemoryStore) AddOrganization(o model.Organization) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.nextSeq()
	s.organizations[o.ID] = &o
	return o.ID
}

func (s *MemoryStore) ListOrganizations(_ context.Context) ([]*model.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orgs := []*model.Organization{}
	for _, o := range s.organizations {
		cp := *o
		orgs = append(orgs, &cp)
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].ID < orgs[j].ID })
	return orgs, nil
}

func (s *MemoryStore) FindOrganizationByID(_ context.Context, id int64) (*model.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.organizations[id]
	if !ok {
		return nil, fmt.Errorf("%w: organization %d not found", ErrNotFound, id)
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) UpdateOrganization(_ context.Context, id int64, patch model.OrganizationPatch) (*model.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.organizations[id]
	if !ok {
		return nil, fmt.Errorf("%w: organization %d not found", ErrNotFound, id)
	}
	if patch.Email != nil {
		for otherID, other := range s.organizations {
			if otherID != id && other.Email == *patch.Email {
				return nil, fmt.Errorf("%w: organization with email %q already exists", ErrConflict, *patch.Email)
			}
		}
	}
	patch.Apply(o)
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) SetOrganizationStatus(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.organizations[id]
	if !ok {
		return fmt.Errorf("%w: organization %d not found", ErrNotFound, id)
	}
	o.Active = active
	return nil
}

// --- Users ---

func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: user with email %q already exists", ErrConflict, u.Email)
		}
	}
	u.ID = s.nextSeq()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) FindUserByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d not found", ErrNotFound, id)
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := []*model.User{}
	for _, u := range s.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *MemoryStore) ListUsersByCity(_ context.Context, city string) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := []*model.User{}
	for _, u := range s.users {
		if strings.EqualFold(u.City, city) {
			cp := *u
			users = append(users, &cp)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, id int64, patch model.UserPatch) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d not found", ErrNotFound, id)
	}
	if patch.Email != nil {
		for otherID, other := range s.users {
			if otherID != id && other.Email == *patch.Email {
				return nil, fmt.Errorf("%w: user with email %q already exists", ErrConflict, *patch.Email)
			}
		}
	}
	patch.Apply(u)
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) SetUserStatus(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%w: user %d not found", ErrNotFound, id)
	}
	u.Active = active
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("%w: user %d not found", ErrNotFound, id)
	}
	delete(s.users, id)
	return nil
}

// --- Client companies ---

// AddClientCompany seeds a client company; for tests and dev mode.
func (s *MemoryStore) AddClientCompany(c model.ClientCompany) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextSeq()
	s.clients[c.ID] = &c
	return c.ID
}

func (s *MemoryStore) ListClientCompanies(_ context.Context) ([]*model.ClientCompany, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	companies := []*model.ClientCompany{}
	for _, c := range s.clients {
		cp := *c
		companies = append(companies, &cp)
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].ID < companies[j].ID })
	return companies, nil
}

func (s *MemoryStore) FindClientCompanyByID(_ context.Context, id int64) (*model.ClientCompany, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, fmt.Errorf("%w: client company %d not found", ErrNotFound, id)
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) SetClientCompanyStatus(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return fmt.Errorf("%w: client company %d not found", ErrNotFound, id)
	}
	c.Active = active
	return nil
}

// --- Disposal requests ---

func (s *MemoryStore) CreateDisposalRequest(_ context.Context, r *model.DisposalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.organizations[r.OrganizationID]; !ok {
		return fmt.Errorf("%w: organization %d not found", ErrNotFound, r.OrganizationID)
	}
	if _, ok := s.clients[r.ClientID]; !ok {
		return fmt.Errorf("%w: client company %d not found", ErrNotFound, r.ClientID)
	}
	r.ID = s.nextSeq()
	cp := *r
	s.requests[r.ID] = &cp
	return nil
}

func (s *MemoryStore) FindDisposalRequestByID(_ context.Context, id int64) (*model.DisposalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: disposal request %d not found", ErrNotFound, id)
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListDisposalRequests(_ context.Context, orgID, clientID *int64) ([]*model.DisposalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	requests := []*model.DisposalRequest{}
	for _, r := range s.requests {
		if orgID != nil && r.OrganizationID != *orgID {
			continue
		}
		if clientID != nil && r.ClientID != *clientID {
			continue
		}
		cp := *r
		requests = append(requests, &cp)
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].CreatedAt.After(requests[j].CreatedAt) })
	return requests, nil
}

func (s *MemoryStore) UpdateDisposalRequestStatus(_ context.Context, id int64, status string, updatedAt time.Time) (*model.DisposalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: disposal request %d not found", ErrNotFound, id)
	}
	r.Status = status
	r.UpdatedAt = updatedAt
	cp := *r
	return &cp, nil
}

// --- API tokens ---

func (s *MemoryStore) ResolveToken(_ context.Context, token string) (auth.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.tokens[token]
	if !ok {
		return auth.Principal{}, fmt.Errorf("%w: unknown token", ErrNotFound)
	}
	return p, nil
}

// --- Analytics ---

func (s *MemoryStore) ClientCompanyActivity(_ context.Context) ([]*model.ClientCompanyActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := []*model.ClientCompanyActivity{}
	for _, c := range s.clients {
		st := &model.ClientCompanyActivity{ClientID: c.ID, Name: c.Name}
		for _, r := range s.requests {
			if r.ClientID != c.ID {
				continue
			}
			st.TotalRequests++
			if r.Status == model.RequestCompleted {
				st.CompletedRequests++
			} else {
				st.ActiveRequests++
			}
			if st.LastActivity == nil || r.CreatedAt.After(*st.LastActivity) {
				t := r.CreatedAt
				st.LastActivity = &t
			}
		}
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ClientID < stats[j].ClientID })
	return stats, nil
}

func (s *MemoryStore) OrganizationActivity(_ context.Context) ([]*model.OrganizationActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := []*model.OrganizationActivity{}
	for _, o := range s.organizations {
		st := &model.OrganizationActivity{OrganizationID: o.ID, Name: o.Name}
		for _, r := range s.requests {
			if r.OrganizationID != o.ID {
				continue
			}
			st.TotalRequests++
			if r.Status == model.RequestCompleted {
				st.CompletedRequests++
			}
			if st.LastActivity == nil || r.UpdatedAt.After(*st.LastActivity) {
				t := r.UpdatedAt
				st.LastActivity = &t
			}
		}
		for _, site := range s.sites {
			if site.OrganizationID != o.ID {
				continue
			}
			st.ContainerSites++
			for _, c := range s.containers {
				if c.SiteID == site.ID {
					st.Containers++
				}
			}
		}
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].OrganizationID < stats[j].OrganizationID })
	return stats, nil
}
