package models

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	valid := []string{
		"63LfDmNb3MQ8mw9MtZ2To9bEA2M71kZUUGq5tiJxcqj9",
		"So11111111111111111111111111111111111111112",
		"11111111111111111111111111111111", // 32 chars
	}
	for _, a := range valid {
		assert.NoError(t, ValidateAddress(a), "address %s should be valid", a)
	}

	invalid := []string{
		"",
		"short",
		"0OIl1111111111111111111111111111111",         // excluded characters
		"63LfDmNb3MQ8mw9MtZ2To9bEA2M71kZUUGq5tiJxcqj9x", // 45 chars
		"63LfDmNb3MQ8mw9MtZ2To9bEA2M71kZU Gq5tiJxcqj9",  // space
	}
	for _, a := range invalid {
		assert.ErrorIs(t, ValidateAddress(a), ErrInvalidAddress, "address %q should be invalid", a)
	}
}

func TestValidateSignature(t *testing.T) {
	sig := make([]byte, 64)
	for i := range sig {
		sig[i] = byte(i + 1)
	}
	assert.NoError(t, ValidateSignature(base58.Encode(sig)))

	assert.ErrorIs(t, ValidateSignature(base58.Encode(sig[:32])), ErrInvalidSignature)
	assert.ErrorIs(t, ValidateSignature("not-base58-0OIl"), ErrInvalidSignature)
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "63LfDmNb...", ShortAddress("63LfDmNb3MQ8mw9MtZ2To9bEA2M71kZUUGq5tiJxcqj9"))
	assert.Equal(t, "abc", ShortAddress("abc"))
}
