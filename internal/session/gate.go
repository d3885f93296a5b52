package session

import (
	"strings"

	"campus-marketplace-backend/internal/domain"
)

// Decision is the route gate's verdict.
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectCompleteProfile
	RedirectHome
	RedirectPendingApproval
)

// Client-side paths the gate redirects to.
const (
	PathLogin           = "/login"
	PathCompleteProfile = "/complete-profile"
	PathHome            = "/home"
	PathWaitingApproval = "/waiting-approval"
	PathSelectRole      = "/select-role"
)

var decisionNames = map[Decision]string{
	Allow:                   "allow",
	RedirectLogin:           "redirect_login",
	RedirectCompleteProfile: "redirect_complete_profile",
	RedirectHome:            "redirect_home",
	RedirectPendingApproval: "redirect_pending_approval",
}

func (d Decision) String() string {
	if name, ok := decisionNames[d]; ok {
		return name
	}
	return "unknown"
}

func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Redirect is the path to send the client to, "" for Allow.
func (d Decision) Redirect() string {
	switch d {
	case RedirectLogin:
		return PathLogin
	case RedirectCompleteProfile:
		return PathCompleteProfile
	case RedirectHome:
		return PathHome
	case RedirectPendingApproval:
		return PathWaitingApproval
	}
	return ""
}

// Authorize decides whether user may open currentPath, which requires
// requiredRole ("" for any signed-in user). Checks run in a fixed order and
// the first match wins:
//
//  1. no user: login
//  2. incomplete profile, unless already on the completion page
//  3. role mismatch: home
//  4. unapproved seller on a seller page: pending approval
func Authorize(user *domain.User, requiredRole domain.Role, currentPath string) Decision {
	if user == nil {
		return RedirectLogin
	}
	if !user.ProfileComplete && currentPath != PathCompleteProfile {
		return RedirectCompleteProfile
	}
	if requiredRole != "" && user.Role != requiredRole {
		return RedirectHome
	}
	if user.Role == domain.RoleSeller && requiredRole == domain.RoleSeller && !user.Approved {
		return RedirectPendingApproval
	}
	return Allow
}

// routeRoles lists the client routes behind the gate and the role each
// needs. Routes mapped to "" only need a signed-in user.
var routeRoles = map[string]domain.Role{
	"/checkout":         domain.RoleBuyer,
	"/buyer-dashboard":  domain.RoleBuyer,
	"/seller-dashboard": domain.RoleSeller,
	"/admin":            domain.RoleAdmin,
	PathCompleteProfile: "",
}

// ProtectedRoute looks up a client path. ok is false for public paths.
func ProtectedRoute(path string) (role domain.Role, ok bool) {
	role, ok = routeRoles[normalizePath(path)]
	return role, ok
}

func normalizePath(path string) string {
	path = strings.TrimRight(path, "/")
	if path == "" {
		return "/"
	}
	return path
}

// AuthorizePath applies the gate to a client path, allowing public paths.
func AuthorizePath(user *domain.User, path string) Decision {
	path = normalizePath(path)
	role, ok := routeRoles[path]
	if !ok {
		return Allow
	}
	return Authorize(user, role, path)
}
