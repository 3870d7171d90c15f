package model

// Organization is a waste-management operator owning container sites
// and vehicles.
type Organization struct {
	ID           int64  `json:"organizationId"`
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	City         string `json:"city,omitempty"`
	Street       string `json:"street,omitempty"`
	Building     string `json:"building,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	EDRPOU       string `json:"edrpou,omitempty"`
	Active       bool   `json:"status"`
}

type OrganizationPatch struct {
	Name        *string `json:"name,omitempty"`
	Type        *string `json:"type,omitempty"`
	City        *string `json:"city,omitempty"`
	Street      *string `json:"street,omitempty"`
	Building    *string `json:"building,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Email       *string `json:"email,omitempty"`
}

func (p OrganizationPatch) Apply(o *Organization) {
	if p.Name != nil {
		o.Name = *p.Name
	}
	if p.Type != nil {
		o.Type = *p.Type
	}
	if p.City != nil {
		o.City = *p.City
	}
	if p.Street != nil {
		o.Street = *p.Street
	}
	if p.Building != nil {
		o.Building = *p.Building
	}
	if p.PhoneNumber != nil {
		o.PhoneNumber = *p.PhoneNumber
	}
	if p.Email != nil {
		o.Email = *p.Email
	}
}

// ClientCompany is a business that files disposal requests against
// organizations.
type ClientCompany struct {
	ID           int64  `json:"clientId"`
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	City         string `json:"city,omitempty"`
	Street       string `json:"street,omitempty"`
	Building     string `json:"building,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	EDRPOU       string `json:"edrpou,omitempty"`
	Active       bool   `json:"status"`
}

// User is a resident receiving site and collection notifications for
// their city.
type User struct {
	ID           int64  `json:"userId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Patronymic   string `json:"patronymic,omitempty"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	City         string `json:"city,omitempty"`
	PasswordHash string `json:"-"`
	Active       bool   `json:"status"`
}

type UserPatch struct {
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	Patronymic  *string `json:"patronymic,omitempty"`
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	City        *string `json:"city,omitempty"`
}

func (p UserPatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Patronymic != nil {
		u.Patronymic = *p.Patronymic
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.City != nil {
		u.City = *p.City
	}
}
