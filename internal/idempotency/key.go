package idempotency

import (
	"errors"
	"fmt"
)

// maxKeyLen bounds caller-supplied keys; anything longer is rejected
// before touching the ledger.
const maxKeyLen = 50

// ErrKeyInvalid is returned for empty or oversized idempotency keys.
var ErrKeyInvalid = errors.New("invalid idempotency key")

// Key is a validated idempotency key. Keys are scoped per user: two users
// may reuse the same literal value without interference.
type Key struct {
	value string
}

// NewKey validates s and returns it as a Key.
func NewKey(s string) (Key, error) {
	if s == "" {
		return Key{}, fmt.Errorf("%w: must not be empty", ErrKeyInvalid)
	}
	if len(s) > maxKeyLen {
		return Key{}, fmt.Errorf("%w: must not exceed %d characters", ErrKeyInvalid, maxKeyLen)
	}
	return Key{value: s}, nil
}

// String returns the validated key value.
func (k Key) String() string {
	return k.value
}
