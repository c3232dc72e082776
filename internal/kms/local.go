package kms

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/hkdf"
)

// Local is a development key provider: per-key-id keys are derived from one
// master key with HKDF-SHA256. The key id travels in clear in front of the
// sealed bytes so Decrypt can find it, the same way KMS blobs self-identify:
//
//	uint16 len(keyID) | keyID | nonce | sealed payload
type Local struct {
	master []byte
}

// ParseMasterKey decodes a hex encoded 32 byte master key.
func ParseMasterKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMasterKey, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: want 32 bytes, got %d", ErrInvalidMasterKey, len(key))
	}
	return key, nil
}

// NewLocal returns a Local provider for a 32 byte master key.
func NewLocal(master []byte) (*Local, error) {
	if len(master) != 32 {
		return nil, fmt.Errorf("%w: want 32 bytes, got %d", ErrInvalidMasterKey, len(master))
	}
	return &Local{master: append([]byte(nil), master...)}, nil
}

var _ Client = (*Local)(nil)

func (l *Local) Encrypt(ctx context.Context, keyID string, plaintext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if keyID == "" {
		return nil, ErrKeyIDRequired
	}
	if len(keyID) > math.MaxUint16 {
		return nil, fmt.Errorf("key id too long: %d bytes", len(keyID))
	}
	key, err := l.derive(keyID)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	sealed, err := seal(key, plaintext, []byte(keyID))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 2, 2+len(keyID)+len(sealed))
	binary.BigEndian.PutUint16(out, uint16(len(keyID)))
	out = append(out, keyID...)
	return append(out, sealed...), nil
}

func (l *Local) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ciphertext) < 2 {
		return nil, ErrMalformedCipher
	}
	n := int(binary.BigEndian.Uint16(ciphertext[:2]))
	if n == 0 || len(ciphertext)-2 < n {
		return nil, ErrMalformedCipher
	}
	keyID, sealed := ciphertext[2:2+n], ciphertext[2+n:]

	key, err := l.derive(string(keyID))
	if err != nil {
		return nil, err
	}
	defer clear(key)

	return open(key, sealed, keyID)
}

func (l *Local) derive(keyID string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, l.master, nil, []byte("docvault/kms/"+keyID))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}
