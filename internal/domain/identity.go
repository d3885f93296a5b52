package domain

import "context"

// Identity is the provider-side authenticated principal. The session layer
// only ever reads ID from it to key the profile lookup.
type Identity struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}

// AuthSession is what the provider returns after a successful sign-in.
// AccessToken is empty when sign-up requires email confirmation first.
type AuthSession struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// IdentityProvider is the external authentication service. Failures carry
// an *apperror.AppError whose Kind the client can branch on.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password, displayName string) (*AuthSession, error)
	SignIn(ctx context.Context, email, password string) (*AuthSession, error)
	SignInWithIDToken(ctx context.Context, provider, idToken string) (*AuthSession, error)
	ResendVerification(ctx context.Context, email string) error
	SignOut(ctx context.Context, accessToken string) error
}

// Session is one client's signed-in state: the reconciled current user and
// the cart. It is owned by the session layer and handed to usecases per
// request.
type Session interface {
	ID() string
	CurrentUser() *User
	Identity() *Identity
	// Adopt makes user current immediately, bypassing reconciliation.
	Adopt(ctx context.Context, user User) error
	// Logout clears the current user and the persisted snapshot.
	Logout(ctx context.Context)
	// Refresh refetches the profile for the current identity.
	Refresh(ctx context.Context) error
	Cart() CartStore
}

// LoginGuard throttles repeated failed sign-ins.
type LoginGuard interface {
	IsBlocked(ctx context.Context, email, ip string) (bool, error)
	RecordFailure(ctx context.Context, email string, meta ClientMeta, reason string) (bool, error)
	Clear(ctx context.Context, email, ip string) error
}

// ClientMeta carries request attributes used for auditing.
type ClientMeta struct {
	IP        string
	UserAgent string
	RequestID string
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=80,valid_name,no_emoji"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Campus   string `json:"campus" binding:"omitempty,max=80,campus"`
	Role     Role   `json:"role" binding:"omitempty,oneof=buyer seller"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type FederatedLoginRequest struct {
	Provider string `json:"provider" binding:"omitempty,oneof=google"`
	IDToken  string `json:"idToken" binding:"required"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// AuthResult is returned by sign-in operations. User is nil for a
// federated sign-in whose identity has no profile yet; NewUser is then set
// and the client must pick a role.
type AuthResult struct {
	User        *User     `json:"user,omitempty"`
	AccessToken string    `json:"accessToken,omitempty"`
	NewUser     bool      `json:"isNewUser"`
	Identity    *Identity `json:"identity,omitempty"`
}

type AuthUsecase interface {
	Register(ctx context.Context, sess Session, req RegisterRequest, meta ClientMeta) (*AuthResult, error)
	Login(ctx context.Context, sess Session, req LoginRequest, meta ClientMeta) (*AuthResult, error)
	FederatedLogin(ctx context.Context, sess Session, req FederatedLoginRequest, meta ClientMeta) (*AuthResult, error)
	ResendVerification(ctx context.Context, email string) error
	Logout(ctx context.Context, sess Session, accessToken string, meta ClientMeta)
	Me(ctx context.Context, sess Session) (*User, error)
	Refresh(ctx context.Context, sess Session) (*User, error)
}
