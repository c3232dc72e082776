package kms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docvault/internal/config"
)

// Client is the boundary to an external key-management authority. The application
// never handles master key material; it only passes plaintext in and ciphertext out.
// The ciphertext is opaque and carries whatever the provider needs to find the key again.
type Client interface {
	Encrypt(ctx context.Context, keyID string, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

var (
	ErrKeyIDRequired    = errors.New("key id is required")
	ErrMalformedCipher  = errors.New("malformed ciphertext")
	ErrUnknownProvider  = errors.New("unknown kms provider")
	ErrInvalidMasterKey = errors.New("invalid local master key")
)

// New builds the Client selected by cfg.Provider.
func New(ctx context.Context, cfg config.KMSConfig) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "aws", "":
		return NewAWS(ctx, cfg)
	case "local":
		key, err := ParseMasterKey(cfg.LocalMasterKey)
		if err != nil {
			return nil, err
		}
		return NewLocal(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
