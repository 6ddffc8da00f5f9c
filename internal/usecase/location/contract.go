package location

import "context"

// Requester asks the client for its location, tagged with requestID.
type Requester interface {
	RequestLocation(ctx context.Context, requestID string) error
}
