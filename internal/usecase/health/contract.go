package health

import "context"

// DBPinger checks store availability (SQLite, Redis).
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks LLM and embedding provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
