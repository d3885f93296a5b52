package domain

import "context"

type SelectRoleRequest struct {
	Role Role `json:"role" binding:"required,oneof=buyer seller"`
}

type CompleteProfileRequest struct {
	Name   string `json:"name" binding:"required,min=2,max=80,valid_name,no_emoji"`
	Phone  string `json:"phone" binding:"required,valid_phone"`
	City   string `json:"city" binding:"required,min=2,max=80,no_emoji"`
	Campus string `json:"campus" binding:"required,max=80,campus"`
}

// RouteDecision is the gate's verdict for a path, with the path to send
// the client to when access is refused.
type RouteDecision struct {
	Path     string `json:"path"`
	Decision string `json:"decision"`
	Redirect string `json:"redirect,omitempty"`
	Allowed  bool   `json:"allowed"`
}

// OnboardingStatus tells the client where the signed-in user stands.
type OnboardingStatus struct {
	SignedIn        bool   `json:"signedIn"`
	NeedsRole       bool   `json:"needsRole"`
	ProfileComplete bool   `json:"profileComplete"`
	Approved        bool   `json:"approved"`
	Role            Role   `json:"role,omitempty"`
	NextPath        string `json:"nextPath"`
}

type OnboardingUsecase interface {
	SelectRole(ctx context.Context, sess Session, role Role) (*User, error)
	CompleteProfile(ctx context.Context, sess Session, req CompleteProfileRequest) (*User, error)
	Status(ctx context.Context, sess Session) OnboardingStatus
	Authorize(ctx context.Context, sess Session, path string) RouteDecision
}
