package domain

import "time"

// Driver kinds. The set is closed; Snowflake is the only member today.
const (
	DriverSnowflake = "snowflake"
)

// SourceDefinition is a registered remote connection profile.
type SourceDefinition struct {
	SourceName         string
	DriverKind         string
	CredentialRef      string
	PassthroughEnabled bool
	CreatedAt          time.Time
}

// Validate checks the definition before it is persisted.
func (s *SourceDefinition) Validate() error {
	if s.SourceName == "" {
		return ErrValidation("source_name is required")
	}
	if s.DriverKind != DriverSnowflake {
		return ErrValidation("driver_kind must be %q, got %q", DriverSnowflake, s.DriverKind)
	}
	if s.CredentialRef == "" {
		return ErrValidation("credential_ref is required")
	}
	return nil
}
