package identity

import (
	"context"
	"errors"
)

// ErrUnauthenticated covers every way a credential can be bad. Handlers turn
// it into a uniform 401; the cause is not exposed to callers.
var ErrUnauthenticated = errors.New("unauthenticated")

// Resolver maps a bearer credential to a stable user id. Issuers are
// swappable behind this interface; nothing downstream may depend on a token
// format.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (uint64, error)
}
