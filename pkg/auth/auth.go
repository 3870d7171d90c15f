// Package auth resolves bearer credentials to a role-tagged principal
// and provides the authorization predicates the handlers branch on.
// Token issuance and cryptographic verification live outside this
// service; resolution here is a store lookup.
package auth

import (
	"context"
	"errors"
)

// Role is the closed set of identities a credential can resolve to.
type Role string

const (
	RoleUser          Role = "user"
	RoleClientCompany Role = "client_company"
	RoleOrganization  Role = "organization"
	RoleAdmin         Role = "admin"
)

// ErrForbidden is returned when a principal's role or ownership does
// not permit the requested operation.
var ErrForbidden = errors.New("access denied")

// Principal is a resolved (entity, role) pair. ID refers to the row of
// the entity named by Role.
type Principal struct {
	Role Role
	ID   int64
}

// IsStaff reports whether the principal may manage sites, containers,
// devices and pickups.
func (p Principal) IsStaff() bool {
	return p.Role == RoleAdmin || p.Role == RoleOrganization
}

// OwnsOrganization reports whether the principal may act on behalf of
// the given organization. Admins always may; an organization only for
// itself.
func (p Principal) OwnsOrganization(orgID int64) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleOrganization:
		return p.ID == orgID
	}
	return false
}

// IsSelfOrAdmin reports whether the principal is the given user or an
// admin.
func (p Principal) IsSelfOrAdmin(userID int64) bool {
	if p.Role == RoleAdmin {
		return true
	}
	return p.Role == RoleUser && p.ID == userID
}

// Resolver turns a bearer token into a principal. Any error means the
// token is unusable; the middleware answers 401 without distinguishing
// unknown from malformed.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Principal, error)
}

// StaticResolver is a fixed token table, used in tests and single-node
// development setups.
type StaticResolver map[string]Principal

var errUnknownToken = errors.New("unknown token")

func (r StaticResolver) Resolve(_ context.Context, token string) (Principal, error) {
	p, ok := r[token]
	if !ok {
		return Principal{}, errUnknownToken
	}
	return p, nil
}
