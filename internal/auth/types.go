package auth

// ClientClaims is the JWT payload issued to a caller of the Submission API.
// This service has no interactive user accounts, only API clients, so the
// claim set is deliberately narrow: who is calling and what they may do.
type ClientClaims struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

// TokenPair represents an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // access token expiry in seconds
	TokenType    string `json:"token_type"` // always "Bearer"
}

// AuthError is a structured authentication failure, returned verbatim as
// the error body of a rejected request.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e AuthError) Error() string {
	return e.Message
}

var (
	ErrInvalidToken = AuthError{Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrTokenExpired = AuthError{Code: "TOKEN_EXPIRED", Message: "token has expired"}
	ErrUnauthorized = AuthError{Code: "UNAUTHORIZED", Message: "unauthorized access"}
)
