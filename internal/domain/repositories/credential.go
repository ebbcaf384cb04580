package repositories

import "context"

// CredentialRepository is durable storage for the session credential.
type CredentialRepository interface {
	// Load returns the stored credential, or "" when none is stored.
	Load(ctx context.Context) (string, error)

	// Save stores the credential, replacing any previous one.
	Save(ctx context.Context, credential string) error

	// Delete removes the stored credential. Deleting nothing is not an error.
	Delete(ctx context.Context) error
}
