package es

// Op constants name backend calls for error context.
const (
	OpSearch  = "search"
	OpMsearch = "msearch"
	OpPing    = "ping"
)

// Error wraps an underlying error with the backend operation name.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "es " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
