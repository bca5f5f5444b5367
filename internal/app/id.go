package app

import "github.com/google/uuid"

// generateID produces a random UUIDv4 provider identifier.
func generateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
