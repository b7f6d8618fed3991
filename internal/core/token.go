package core

import "time"

// Token statuses.
const (
	TokenStatusValid    = "valid"
	TokenStatusInactive = "inactive"
	TokenStatusRedeemed = "redeemed"
	TokenStatusRejected = "rejected"
	TokenStatusRevoked  = "revoked"
)

// Token types.
const (
	TokenTypeAccess            = "access_token"
	TokenTypeRefresh           = "refresh_token"
	TokenTypeID                = "id_token"
	TokenTypeAuthorizationCode = "authorization_code"
)

// Token is an issued token as persisted by a TokenStore.
type Token struct {
	ID              string
	ApplicationID   string
	AuthorizationID string
	Subject         string
	Type            string
	Status          string
	Payload         []byte
	CreationDate    time.Time
	ExpirationDate  *time.Time
	RedemptionDate  *time.Time
}

// IsExpired reports whether the token has an expiration date at or before now.
func (t *Token) IsExpired(now time.Time) bool {
	return t.ExpirationDate != nil && !t.ExpirationDate.After(now)
}

// Clone returns a deep copy of t.
func (t *Token) Clone() *Token {
	c := *t
	c.Payload = append([]byte(nil), t.Payload...)
	if t.ExpirationDate != nil {
		exp := *t.ExpirationDate
		c.ExpirationDate = &exp
	}
	if t.RedemptionDate != nil {
		red := *t.RedemptionDate
		c.RedemptionDate = &red
	}
	return &c
}

// TokenDescriptor carries the caller supplied fields of a new token.
type TokenDescriptor struct {
	ApplicationID   string
	AuthorizationID string
	Subject         string `validate:"required,max=400"`
	Type            string `validate:"required,oneof=access_token refresh_token id_token authorization_code"`
	Status          string `validate:"omitempty,oneof=valid inactive redeemed rejected revoked"`
	Payload         []byte
	ExpirationDate  *time.Time
}
