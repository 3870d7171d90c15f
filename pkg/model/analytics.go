package model

import "time"

// ClientCompanyActivity is one row of the client activity report.
type ClientCompanyActivity struct {
	ClientID          int64      `json:"clientId"`
	Name              string     `json:"name"`
	TotalRequests     int64      `json:"totalRequests"`
	CompletedRequests int64      `json:"completedRequests"`
	ActiveRequests    int64      `json:"activeRequests"`
	LastActivity      *time.Time `json:"lastActivity,omitempty"`
}

// OrganizationActivity is one row of the organization activity report.
type OrganizationActivity struct {
	OrganizationID    int64      `json:"organizationId"`
	Name              string     `json:"name"`
	TotalRequests     int64      `json:"totalRequests"`
	CompletedRequests int64      `json:"completedRequests"`
	ContainerSites    int64      `json:"containerSites"`
	Containers        int64      `json:"containers"`
	LastActivity      *time.Time `json:"lastActivity,omitempty"`
}
