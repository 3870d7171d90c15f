package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecofy/backend/pkg/auth"
	"github.com/ecofy/backend/pkg/model"
	"github.com/ecofy/backend/pkg/persistence"
	"github.com/ecofy/backend/pkg/telemetry"
)

type testServer struct {
	store  *persistence.MemoryStore
	server *httptest.Server
	orgID  int64
	site   *model.ContainerSite
	cont   *model.Container
}

// newTestServer seeds an organization with one site, one container and
// a bound device SN-001, and serves the full router. Tokens:
// admin-token, org-token, user-token (user id 900 does not exist in
// the store unless a test creates it), client-token.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := persistence.NewMemoryStore()

	orgID := store.AddOrganization(model.Organization{Name: "GreenCity", Email: "ops@greencity.example", Active: true})

	site := &model.ContainerSite{City: "Kyiv", Street: "Khreshchatyk", Building: "12", OrganizationID: orgID}
	require.NoError(t, store.CreateSite(ctx, site))

	cont := &model.Container{Type: "general", Capacity: 1100, Status: "empty", SiteID: site.ID}
	require.NoError(t, store.CreateContainer(ctx, cont))

	dev := &model.Device{Name: "sensor-1", SerialNumber: "SN-001", BatteryLevel: 80, Status: model.DeviceInactive, ContainerID: &cont.ID}
	require.NoError(t, store.CreateDevice(ctx, dev))

	clientID := store.AddClientCompany(model.ClientCompany{Name: "Acme Waste", Email: "acme@example.com", Active: true})

	resolver := auth.StaticResolver{
		"admin-token":  {Role: auth.RoleAdmin, ID: 1},
		"org-token":    {Role: auth.RoleOrganization, ID: orgID},
		"user-token":   {Role: auth.RoleUser, ID: 900},
		"client-token": {Role: auth.RoleClientCompany, ID: clientID},
	}

	registry := prometheus.NewRegistry()
	engine := telemetry.NewEngine(store, zerolog.Nop(), telemetry.NewMetrics(registry))
	a := NewAPI(store, engine, zerolog.Nop(), model.DeviceInactive)
	router := NewRouter(a, resolver, NewHTTPMetrics(registry), registry, zerolog.Nop())

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{store: store, server: server, orgID: orgID, site: site, cont: cont}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success, "unexpected error response: %s", envelope.Error)
	if dst != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, dst))
	}
}

func TestTelemetryEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	resp := ts.do(t, http.MethodPost, "/api/v1/telemetry", "", map[string]interface{}{
		"serialNumber": "SN-001",
		"fillLevel":    92,
		"temperature":  20,
		"tilted":       false,
		"batteryLevel": 15,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cont, err := ts.store.FindContainerByID(ctx, ts.cont.ID)
	require.NoError(t, err)
	assert.Equal(t, 92.0, cont.FillLevel)
	assert.Equal(t, "overflowing", cont.Status)

	dev, err := ts.store.FindDeviceBySerial(ctx, "SN-001")
	require.NoError(t, err)
	assert.Equal(t, model.DeviceActive, dev.Status)
	assert.Equal(t, 15, dev.BatteryLevel)

	notifications, err := ts.store.ListAllNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	for _, n := range notifications {
		assert.Equal(t, model.MessageWarning, n.MessageType)
	}
}

func TestTelemetryUnknownSerial(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/telemetry", "", map[string]interface{}{
		"serialNumber": "SN-404",
		"fillLevel":    10,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegisterDeviceDuplicateSerial(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]interface{}{"deviceName": "sensor-2", "serialNumber": "SN-001"}
	resp := ts.do(t, http.MethodPost, "/api/v1/devices", "admin-token", body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRegisterDeviceInitialStatus(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/devices", "admin-token", map[string]interface{}{
		"deviceName":   "sensor-2",
		"serialNumber": "SN-002",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var dev model.Device
	decodeData(t, resp, &dev)
	assert.Equal(t, model.DeviceInactive, dev.Status)
	assert.Nil(t, dev.ContainerID)
}

func TestRegisterDeviceBatteryDefaults(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/devices", "admin-token", map[string]interface{}{
		"deviceName":   "sensor-2",
		"serialNumber": "SN-002",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var dev model.Device
	decodeData(t, resp, &dev)
	assert.Equal(t, 100, dev.BatteryLevel, "a freshly registered unit reports a full battery")

	resp = ts.do(t, http.MethodPost, "/api/v1/devices", "admin-token", map[string]interface{}{
		"deviceName":   "sensor-3",
		"serialNumber": "SN-003",
		"batteryLevel": 130,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeData(t, resp, &dev)
	assert.Equal(t, 100, dev.BatteryLevel, "explicit levels are clamped to 0-100")

	resp = ts.do(t, http.MethodPost, "/api/v1/devices", "admin-token", map[string]interface{}{
		"deviceName":   "sensor-4",
		"serialNumber": "SN-004",
		"batteryLevel": 63,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeData(t, resp, &dev)
	assert.Equal(t, 63, dev.BatteryLevel)
}

func TestDeviceEndpointsRequireStaff(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/v1/devices", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/v1/devices", "user-token", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/v1/devices", "org-token", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvalidTokenRejected(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/v1/devices", "bogus-token", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeviceTelemetrySnapshot(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/telemetry", "", map[string]interface{}{
		"serialNumber": "SN-001",
		"fillLevel":    55,
		"temperature":  21,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dev, err := ts.store.FindDeviceBySerial(context.Background(), "SN-001")
	require.NoError(t, err)

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/devices/%d/telemetry", dev.ID), "org-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap telemetry.Snapshot
	decodeData(t, resp, &snap)
	assert.Equal(t, "SN-001", snap.SerialNumber)
	assert.Equal(t, 55.0, snap.FillLevel)

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/devices/%d/telemetry", dev.ID), "user-token", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateSiteFansOutNotifications(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, ts.store.CreateUser(ctx, &model.User{
			FirstName: "Resident", LastName: fmt.Sprintf("%d", i),
			Email: fmt.Sprintf("resident%d@example.com", i),
			City:  "Kyiv", PasswordHash: "x", Active: true,
		}))
	}
	require.NoError(t, ts.store.CreateUser(ctx, &model.User{
		FirstName: "Other", LastName: "City",
		Email: "other@example.com", City: "Lviv", PasswordHash: "x", Active: true,
	}))

	resp := ts.do(t, http.MethodPost, "/api/v1/container-sites", "org-token", map[string]interface{}{
		"city":           "Kyiv",
		"street":         "Velyka Vasylkivska",
		"building":       "7",
		"organizationId": ts.orgID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var site model.ContainerSite
	decodeData(t, resp, &site)

	notifications, err := ts.store.ListAllNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, notifications, 2, "only users in the site's city are notified")
	for _, n := range notifications {
		assert.Equal(t, model.MessageNewContainerSite, n.MessageType)
		require.NotNil(t, n.SiteID)
		assert.Equal(t, site.ID, *n.SiteID)
		assert.NotNil(t, n.UserID)
	}
}

func TestCompletePickupResetsContainers(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	// Fill the container through telemetry first.
	resp := ts.do(t, http.MethodPost, "/api/v1/telemetry", "", map[string]interface{}{
		"serialNumber": "SN-001",
		"fillLevel":    95,
		"temperature":  20,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/pickups", "org-token", map[string]interface{}{
		"scheduledTime":   "2025-06-01T09:00:00Z",
		"containerSiteId": ts.site.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var pickup model.Pickup
	decodeData(t, resp, &pickup)

	resp = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/pickups/%d/complete", pickup.ID), "org-token", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cont, err := ts.store.FindContainerByID(ctx, ts.cont.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cont.FillLevel)
	assert.Equal(t, "empty", cont.Status)

	completed, err := ts.store.FindPickupByID(ctx, pickup.ID)
	require.NoError(t, err)
	assert.NotNil(t, completed.CompletedTime)

	// Completing twice is a conflict.
	resp = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/pickups/%d/complete", pickup.ID), "org-token", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDeleteSiteWithContainersRefused(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/container-sites/%d", ts.site.ID), "org-token", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]interface{}{
		"firstName": "Olena", "lastName": "Shevchenko",
		"email": "olena@example.com", "password": "secret123", "city": "Kyiv",
	}
	resp := ts.do(t, http.MethodPost, "/api/v1/users", "", body)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/users", "", body)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDisposalRequestLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/disposal-requests", "client-token", map[string]interface{}{
		"wasteType":      "plastic",
		"amountKg":       120.5,
		"organizationId": ts.orgID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var dr model.DisposalRequest
	decodeData(t, resp, &dr)
	assert.Equal(t, model.RequestPending, dr.Status)

	// A user cannot create requests.
	resp = ts.do(t, http.MethodPost, "/api/v1/disposal-requests", "user-token", map[string]interface{}{
		"wasteType": "glass", "amountKg": 10, "organizationId": ts.orgID,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The receiving organization accepts it.
	resp = ts.do(t, http.MethodPut, fmt.Sprintf("/api/v1/disposal-requests/%d/status", dr.ID), "org-token",
		map[string]interface{}{"status": "accepted"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated model.DisposalRequest
	decodeData(t, resp, &updated)
	assert.Equal(t, model.RequestAccepted, updated.Status)

	// Unknown lifecycle states are rejected.
	resp = ts.do(t, http.MethodPut, fmt.Sprintf("/api/v1/disposal-requests/%d/status", dr.ID), "org-token",
		map[string]interface{}{"status": "bogus"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWasteTransferAct(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/disposal-requests", "client-token", map[string]interface{}{
		"wasteType":      "paper",
		"amountKg":       50,
		"organizationId": ts.orgID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var dr model.DisposalRequest
	decodeData(t, resp, &dr)

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/documents/waste-transfer-act/%d", dr.ID), "org-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var act struct {
		ActNumber string  `json:"actNumber"`
		AmountKg  float64 `json:"amountKg"`
	}
	decodeData(t, resp, &act)
	assert.NotEmpty(t, act.ActNumber)
	assert.Equal(t, 50.0, act.AmountKg)

	// A stranger user cannot read the act.
	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/documents/waste-transfer-act/%d", dr.ID), "user-token", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/healthz", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
