package domain

import (
	"context"
	"strings"
	"time"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// Selectable reports whether users may pick this role for themselves.
func (r Role) Selectable() bool {
	return r == RoleBuyer || r == RoleSeller
}

// DefaultCampus is stored when a registrant leaves campus empty.
const DefaultCampus = "Campus"

// User is the session's view of the signed-in person: the identity id merged
// with the stored profile. It is the value persisted under the session's
// user key, so every field must survive a JSON round trip.
type User struct {
	ID              string    `json:"id" validate:"required"`
	Name            string    `json:"name"`
	Email           string    `json:"email" validate:"omitempty,email"`
	Role            Role      `json:"role" validate:"required,oneof=buyer seller admin"`
	Campus          string    `json:"campus"`
	Phone           string    `json:"phone,omitempty"`
	City            string    `json:"city,omitempty"`
	ProfileComplete bool      `json:"profileComplete"`
	Approved        bool      `json:"approved"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Profile is the per-user record held by the profile store, keyed by the
// identity id.
type Profile struct {
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            Role      `json:"role"`
	Campus          string    `json:"campus"`
	Phone           string    `json:"phone"`
	City            string    `json:"city"`
	ProfileComplete bool      `json:"profileComplete"`
	Approved        bool      `json:"approved"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// NewProfile applies registration defaults: buyers are approved
// immediately, everyone else waits for an admin.
func NewProfile(name, email string, role Role, campus string, now time.Time) Profile {
	if !role.IsValid() {
		role = RoleBuyer
	}
	if strings.TrimSpace(campus) == "" {
		campus = DefaultCampus
	}
	return Profile{
		Name:      name,
		Email:     email,
		Role:      role,
		Campus:    campus,
		Approved:  role == RoleBuyer,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (p Profile) ToUser(id string) User {
	return User{
		ID:              id,
		Name:            p.Name,
		Email:           p.Email,
		Role:            p.Role,
		Campus:          p.Campus,
		Phone:           p.Phone,
		City:            p.City,
		ProfileComplete: p.ProfileComplete,
		Approved:        p.Approved,
		CreatedAt:       p.CreatedAt,
	}
}

// ProfileUpdate is a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	Name            *string
	Phone           *string
	City            *string
	Campus          *string
	Role            *Role
	ProfileComplete *bool
	Approved        *bool
}

func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Phone == nil && u.City == nil && u.Campus == nil &&
		u.Role == nil && u.ProfileComplete == nil && u.Approved == nil
}

// Apply returns a copy of user with the update merged in.
func (u ProfileUpdate) Apply(user User) User {
	if u.Name != nil {
		user.Name = *u.Name
	}
	if u.Phone != nil {
		user.Phone = *u.Phone
	}
	if u.City != nil {
		user.City = *u.City
	}
	if u.Campus != nil {
		user.Campus = *u.Campus
	}
	if u.Role != nil {
		user.Role = *u.Role
	}
	if u.ProfileComplete != nil {
		user.ProfileComplete = *u.ProfileComplete
	}
	if u.Approved != nil {
		user.Approved = *u.Approved
	}
	return user
}

// ProfileRepository is the remote profile store. Get returns (nil, nil) when
// no profile exists for id.
type ProfileRepository interface {
	Get(ctx context.Context, id string) (*Profile, error)
	Set(ctx context.Context, id string, profile Profile) error
	Update(ctx context.Context, id string, update ProfileUpdate) error
	Remove(ctx context.Context, id string) error
}
