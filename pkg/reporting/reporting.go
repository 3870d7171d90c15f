// Package reporting builds the read-only operational documents: the
// route sheet handed to a vehicle crew and the waste transfer act that
// closes a disposal request. Builders are pure; the API layer fetches
// the rows and renders the result as JSON.
package reporting

import (
	"fmt"
	"sort"
	"time"

	"github.com/ecofy/backend/pkg/model"
)

// RoutePoint is one stop on a vehicle's route sheet, ordered by
// scheduled time.
type RoutePoint struct {
	Order         int       `json:"order"`
	PickupID      int64     `json:"pickupId"`
	SiteID        int64     `json:"containerSiteId"`
	Address       string    `json:"address"`
	ScheduledTime time.Time `json:"scheduledTime"`
	Completed     bool      `json:"completed"`
}

// RouteSheet is the per-vehicle, per-day collection route.
type RouteSheet struct {
	VehicleID   int64        `json:"vehicleId"`
	VehicleName string       `json:"vehicleName"`
	NumberPlate string       `json:"numberPlate"`
	Date        string       `json:"date"`
	Points      []RoutePoint `json:"points"`
}

// SiteAddress renders a container site as a single address line.
func SiteAddress(s *model.ContainerSite) string {
	addr := fmt.Sprintf("%s, %s %s", s.City, s.Street, s.Building)
	if s.Entrance != "" {
		addr += ", entrance " + s.Entrance
	}
	return addr
}

// BuildRouteSheet assembles the route sheet for one vehicle on one day.
// Pickups not assigned to the vehicle or scheduled outside the day are
// skipped; sites maps site IDs to their rows.
func BuildRouteSheet(v *model.Vehicle, day time.Time, pickups []*model.Pickup, sites map[int64]*model.ContainerSite) *RouteSheet {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	points := []RoutePoint{}
	for _, p := range pickups {
		if p.VehicleID == nil || *p.VehicleID != v.ID {
			continue
		}
		if p.ScheduledTime.Before(dayStart) || !p.ScheduledTime.Before(dayEnd) {
			continue
		}
		address := ""
		if site, ok := sites[p.SiteID]; ok {
			address = SiteAddress(site)
		}
		points = append(points, RoutePoint{
			PickupID:      p.ID,
			SiteID:        p.SiteID,
			Address:       address,
			ScheduledTime: p.ScheduledTime,
			Completed:     p.CompletedTime != nil,
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].ScheduledTime.Before(points[j].ScheduledTime) })
	for i := range points {
		points[i].Order = i + 1
	}

	return &RouteSheet{
		VehicleID:   v.ID,
		VehicleName: v.Name,
		NumberPlate: v.NumberPlate,
		Date:        dayStart.Format("2006-01-02"),
		Points:      points,
	}
}

// Party identifies one side of a waste transfer act.
type Party struct {
	Name        string `json:"name"`
	EDRPOU      string `json:"edrpou,omitempty"`
	Address     string `json:"address,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// WasteTransferAct documents a completed disposal request: the client
// handed the stated amount of waste to the organization.
type WasteTransferAct struct {
	ActNumber        string  `json:"actNumber"`
	Date             string  `json:"date"`
	Transferor       Party   `json:"transferor"`
	Receiver         Party   `json:"receiver"`
	WasteType        string  `json:"wasteType"`
	WasteDescription string  `json:"wasteDescription,omitempty"`
	AmountKg         float64 `json:"amountKg"`
	RequestStatus    string  `json:"requestStatus"`
}

func partyAddress(city, street, building string) string {
	if city == "" && street == "" && building == "" {
		return ""
	}
	return fmt.Sprintf("%s, %s %s", city, street, building)
}

// BuildWasteTransferAct assembles the act for a disposal request. The
// act number is derived from the request ID and its last update date.
func BuildWasteTransferAct(r *model.DisposalRequest, org *model.Organization, client *model.ClientCompany) *WasteTransferAct {
	return &WasteTransferAct{
		ActNumber: fmt.Sprintf("WTA-%d-%s", r.ID, r.UpdatedAt.Format("20060102")),
		Date:      r.UpdatedAt.Format("2006-01-02"),
		Transferor: Party{
			Name:        client.Name,
			EDRPOU:      client.EDRPOU,
			Address:     partyAddress(client.City, client.Street, client.Building),
			PhoneNumber: client.PhoneNumber,
		},
		Receiver: Party{
			Name:        org.Name,
			EDRPOU:      org.EDRPOU,
			Address:     partyAddress(org.City, org.Street, org.Building),
			PhoneNumber: org.PhoneNumber,
		},
		WasteType:        r.WasteType,
		WasteDescription: r.WasteDescription,
		AmountKg:         r.AmountKg,
		RequestStatus:    r.Status,
	}
}
