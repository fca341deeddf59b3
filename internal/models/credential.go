package models

import "time"

// CredentialSlotID is the primary key of the only credential row.
const CredentialSlotID uint = 1

// Credential is the OAuth2 access/refresh token pair used against the partner API.
// JSON tags match the on-disk tokens file layout.
type Credential struct {
	ID           uint      `gorm:"column:id;primaryKey" json:"-"`
	AccessToken  string    `gorm:"column:access_token" json:"accessToken"`
	RefreshToken *string   `gorm:"column:refresh_token" json:"refreshToken"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"-"`
}

// TableName specifies the table name for GORM
func (Credential) TableName() string {
	return "oauth_credential"
}

// HasAccessToken reports whether the credential is usable at all.
// A credential without an access token is treated as absent.
func (c *Credential) HasAccessToken() bool {
	return c != nil && c.AccessToken != ""
}

// HasRefreshToken reports whether a refresh-token grant can be attempted.
func (c *Credential) HasRefreshToken() bool {
	return c != nil && c.RefreshToken != nil && *c.RefreshToken != ""
}

// NewCredential builds a Credential, mapping an empty refresh token to nil.
func NewCredential(accessToken, refreshToken string) Credential {
	cred := Credential{AccessToken: accessToken}
	if refreshToken != "" {
		cred.RefreshToken = &refreshToken
	}
	return cred
}
