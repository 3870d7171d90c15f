package model

import "time"

// Container is a physical waste receptacle at a site. Fill level,
// temperature and tilt are written exclusively by telemetry ingestion;
// pickup completion resets the fill level and status.
type Container struct {
	ID          int64     `json:"containerId"`
	Type        string    `json:"type"`
	Capacity    int       `json:"capacity"`
	FillLevel   float64   `json:"fillLevel"`
	Temperature float64   `json:"temperature"`
	Tilted      bool      `json:"tilted"`
	Status      string    `json:"status"`
	LastUpdate  time.Time `json:"lastUpdate"`
	SiteID      int64     `json:"containerSiteId"`
}

// ContainerPatch carries a partial container update for the
// administrative endpoints. Telemetry bypasses this and writes its
// fields directly inside the ingestion transaction.
type ContainerPatch struct {
	Type      *string  `json:"type,omitempty"`
	Capacity  *int     `json:"capacity,omitempty"`
	FillLevel *float64 `json:"fillLevel,omitempty"`
	Status    *string  `json:"status,omitempty"`
	SiteID    *int64   `json:"containerSiteId,omitempty"`
}

func (p ContainerPatch) Apply(c *Container) {
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Capacity != nil {
		c.Capacity = *p.Capacity
	}
	if p.FillLevel != nil {
		c.FillLevel = *p.FillLevel
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.SiteID != nil {
		c.SiteID = *p.SiteID
	}
}
