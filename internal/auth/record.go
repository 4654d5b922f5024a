package auth

import (
	"encoding/json"
	"fmt"
)

const recordVersion = 1

// identityRecord is the persisted form of a session identity.
type identityRecord struct {
	Version  int       `json:"v"`
	Identity *Identity `json:"identity"`
}

func encodeRecord(identity Identity) (string, error) {
	data, err := json.Marshal(identityRecord{Version: recordVersion, Identity: &identity})
	if err != nil {
		return "", fmt.Errorf("auth: encode session: %w", err)
	}
	return string(data), nil
}

func decodeRecord(raw string) (Identity, error) {
	var rec identityRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	if rec.Version != recordVersion {
		return Identity{}, fmt.Errorf("%w: unsupported version %d", ErrSessionCorrupt, rec.Version)
	}
	if rec.Identity == nil {
		return Identity{}, fmt.Errorf("%w: missing identity", ErrSessionCorrupt)
	}
	if err := rec.Identity.validate(); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	return *rec.Identity, nil
}
