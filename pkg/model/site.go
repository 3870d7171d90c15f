package model

// ContainerSite is a physical location owning one or more containers.
// It belongs to exactly one organization.
type ContainerSite struct {
	ID             int64  `json:"containerSiteId"`
	LocationLat    string `json:"locationLat"`
	LocationLng    string `json:"locationLng"`
	City           string `json:"city"`
	Street         string `json:"street"`
	Building       string `json:"building"`
	Entrance       string `json:"entrance,omitempty"`
	Description    string `json:"description,omitempty"`
	OrganizationID int64  `json:"organizationId"`
}

type ContainerSitePatch struct {
	LocationLat *string `json:"locationLat,omitempty"`
	LocationLng *string `json:"locationLng,omitempty"`
	City        *string `json:"city,omitempty"`
	Street      *string `json:"street,omitempty"`
	Building    *string `json:"building,omitempty"`
	Entrance    *string `json:"entrance,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (p ContainerSitePatch) Apply(s *ContainerSite) {
	if p.LocationLat != nil {
		s.LocationLat = *p.LocationLat
	}
	if p.LocationLng != nil {
		s.LocationLng = *p.LocationLng
	}
	if p.City != nil {
		s.City = *p.City
	}
	if p.Street != nil {
		s.Street = *p.Street
	}
	if p.Building != nil {
		s.Building = *p.Building
	}
	if p.Entrance != nil {
		s.Entrance = *p.Entrance
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
}
