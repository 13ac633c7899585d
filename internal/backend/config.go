package backend

import (
	"fmt"

	"coffeecounter/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:               backendType,
		SQLiteDBPath:       appConfig.SQLiteDBPath,
		FirestoreProjectID: appConfig.FirestoreProjectID,
		AccountID:          appConfig.AccountID,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}

	case RemoteBackend:
		// The remote backend is session-gated: it needs an account id
		// and a local path for the fallback copy. Credentials are
		// checked at client construction.
		if c.AccountID == "" {
			return fmt.Errorf("account id is required for remote backend")
		}
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("Firestore project id is required for remote backend")
		}
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for the remote backend's local fallback")
		}

	case MemoryBackend:
		// No additional validation.
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, RemoteBackend}
}
