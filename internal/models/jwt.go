package models

// JWTClaims holds the identity claims the API needs from a verified token
type JWTClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Iss   string `json:"iss"`
	Exp   int64  `json:"exp"`
}
