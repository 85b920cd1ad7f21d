package model

import "time"

// Connection kinds supported by the console.
const (
	ConnectionKindOSDU      = "osdu"
	ConnectionKindProSource = "prosource"
)

// Health states reported by the background checker.
const (
	HealthUnknown   = "unknown"
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

// ConnectionConfig holds the platform-specific settings of a connection.
// DataPartitionID applies to OSDU partitions; ProjectName and DBSchema
// apply to ProSource catalogs.
type ConnectionConfig struct {
	DataPartitionID string
	ProjectName     string
	DBSchema        string
}

// Connection represents a configured upstream metadata platform.
type Connection struct {
	ID            int64
	Name          string
	Kind          string
	Config        ConnectionConfig
	LastHealth    string
	LastError     *string
	LastCheckedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
