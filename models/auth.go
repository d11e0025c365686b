package models

// TokenBundle is the login/refresh response: a fresh access+refresh pair
// with the access token's lifetime in seconds
type TokenBundle struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int64      `json:"expires_in"`
	User         PublicUser `json:"user"`
}

// Principal is the per-request identity the edge derives from an access
// token's claims. It is never persisted.
type Principal struct {
	Subject     string
	Email       string
	Authorities []string
}
