package internal

import (
	"crypto/rand"
	"math/big"

	"github.com/MrEthical07/goAccount/provider"
)

// maxRequestCode keeps issued codes inside the lower 16 bits platforms reserve for
// application request codes.
const maxRequestCode = 0xFFFF

// NewRequestCode returns a random request code in [1, 0xFFFF].
func NewRequestCode() (provider.RequestCode, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxRequestCode))
	if err != nil {
		return 0, err
	}
	return provider.RequestCode(n.Int64() + 1), nil
}

// NewRequestCodeExcept returns a random request code different from every code in taken.
func NewRequestCodeExcept(taken func(provider.RequestCode) bool) (provider.RequestCode, error) {
	for {
		code, err := NewRequestCode()
		if err != nil {
			return 0, err
		}
		if taken == nil || !taken(code) {
			return code, nil
		}
	}
}
