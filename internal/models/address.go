package models

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/mr-tron/base58"
)

var (
	ErrInvalidAddress   = errors.New("invalid solana address")
	ErrInvalidSignature = errors.New("invalid transaction signature")
)

// base58 alphabet without 0, O, I and l
var addressRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// ValidateAddress checks the textual shape of a wallet address. No I/O.
func ValidateAddress(address string) error {
	if !addressRe.MatchString(address) {
		return ErrInvalidAddress
	}
	return nil
}

// ValidateSignature checks that sig decodes to a 64-byte ed25519 signature.
func ValidateSignature(sig string) error {
	raw, err := base58.Decode(sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(raw) != 64 {
		return fmt.Errorf("%w: decoded %d bytes", ErrInvalidSignature, len(raw))
	}
	return nil
}

// ShortAddress truncates an address for log output.
func ShortAddress(address string) string {
	if len(address) > 8 {
		return address[:8] + "..."
	}
	return address
}
