package entity

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ValidateAddress checks that s is an EVM account address: "0x" followed by
// exactly 40 hexadecimal characters.
func ValidateAddress(s string) error {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return fmt.Errorf("%w: address %q must start with 0x", ErrValidation, s)
	}
	if len(s) != 42 {
		return fmt.Errorf("%w: address %q must be 42 characters long", ErrValidation, s)
	}
	if !common.IsHexAddress(s) {
		return fmt.Errorf("%w: address %q contains non-hex characters", ErrValidation, s)
	}
	return nil
}

// NormalizeAddress lower-cases an address for use as a map or cache key.
func NormalizeAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
