package health

import "context"

// IndexPinger checks index backend availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// StorePinger checks document/cache store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}
