package domain

type CtxKey string

const (
	KeyUserID    CtxKey = "UserID"
	KeyUserEmail CtxKey = "Email"
	KeyUserRole  CtxKey = "Role"
	// KeySession holds the caller's Session for the duration of a request
	KeySession CtxKey = "Session"
	// KeyAccessToken is the verified provider token, if any
	KeyAccessToken CtxKey = "AccessToken"
)
