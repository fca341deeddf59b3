// Package credential persists the single OAuth2 credential slot.
package credential

import (
	"context"

	"github.com/vipul43/listing-sync/internal/models"
)

// Store is single-slot credential storage.
//
// Load reports absent (nil, false) when nothing was saved, when the stored
// payload does not parse, or when it has no access token. Implementations log
// which of those happened; callers treat all three as "must authenticate".
type Store interface {
	Save(ctx context.Context, cred models.Credential) error
	Load(ctx context.Context) (*models.Credential, bool)
}
