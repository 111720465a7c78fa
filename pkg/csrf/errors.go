package csrf

import "errors"

var (
	ErrInvalidToken        = errors.New("csrf: invalid token format")
	ErrEmptySecret         = errors.New("csrf: empty secret")
	ErrKeyDerivationFailed = errors.New("csrf: key derivation failed")
)
