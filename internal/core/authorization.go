package core

import "time"

// Authorization statuses.
const (
	AuthorizationStatusValid   = "valid"
	AuthorizationStatusRevoked = "revoked"
)

// Authorization types.
const (
	AuthorizationTypePermanent = "permanent"
	AuthorizationTypeAdHoc     = "ad-hoc"
)

// Authorization is a consent granted by a subject to an application.
type Authorization struct {
	ID            string
	ApplicationID string
	Subject       string
	Type          string
	Status        string
	Scopes        []string
	CreationDate  time.Time
}

// Clone returns a deep copy of a.
func (a *Authorization) Clone() *Authorization {
	c := *a
	c.Scopes = append([]string(nil), a.Scopes...)
	return &c
}

// AuthorizationDescriptor carries the caller supplied fields of a new authorization.
type AuthorizationDescriptor struct {
	ApplicationID string   `validate:"required"`
	Subject       string   `validate:"required,max=400"`
	Type          string   `validate:"required,oneof=permanent ad-hoc"`
	Status        string   `validate:"omitempty,oneof=valid revoked"`
	Scopes        []string `validate:"dive,required"`
}
