package envelope

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"docvault/internal/kms"
)

// DefaultTimeout bounds every call to the key-management service.
const DefaultTimeout = 5 * time.Second

var (
	ErrEncryptionFailure = errors.New("encryption failed")
	ErrDecryptionFailure = errors.New("decryption failed")
)

// Cipher encrypts and decrypts document bytes through an external key-management
// service. It keeps no plaintext, ciphertext or key material between calls and is
// safe for concurrent use.
type Cipher struct {
	client   kms.Client
	timeout  time.Duration
	log      logrus.FieldLogger
	duration *prometheus.HistogramVec
}

// New returns a Cipher that waits at most timeout for each key-management call.
// A non-positive timeout falls back to DefaultTimeout.
func New(client kms.Client, timeout time.Duration, log logrus.FieldLogger) *Cipher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Cipher{client: client, timeout: timeout, log: log}
}

// Register exposes the per-call latency histogram on reg.
func (c *Cipher) Register(reg prometheus.Registerer) error {
	h := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docvault_kms_request_duration_seconds",
			Help:    "Latency of key-management encrypt/decrypt calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "outcome"},
	)
	if err := reg.Register(h); err != nil {
		return err
	}
	c.duration = h
	return nil
}

// Encrypt encrypts plaintext under keyID. On any failure, including the
// timeout or a cancelled ctx, it returns ErrEncryptionFailure wrapping the cause and no bytes.
func (c *Cipher) Encrypt(ctx context.Context, keyID string, plaintext []byte) ([]byte, error) {
	out, err := c.call(ctx, "encrypt", keyID, func(ctx context.Context) ([]byte, error) {
		return c.client.Encrypt(ctx, keyID, plaintext)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryptionFailure, err)
	}
	return out, nil
}

// Decrypt reverses Encrypt. Failures are reported as ErrDecryptionFailure.
func (c *Cipher) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	out, err := c.call(ctx, "decrypt", "", func(ctx context.Context) ([]byte, error) {
		return c.client.Decrypt(ctx, ciphertext)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailure, err)
	}
	return out, nil
}

type result struct {
	b   []byte
	err error
}

// call runs fn with the bounded wait. The wait is enforced here as well as through
// ctx, so a client that ignores cancellation still cannot hold the caller past the timeout.
func (c *Cipher) call(ctx context.Context, op, keyID string, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ch := make(chan result, 1)
	go func() {
		b, err := fn(ctx)
		ch <- result{b: b, err: err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		r = result{err: ctx.Err()}
	}
	c.observe(op, keyID, start, r.err)
	if r.err != nil {
		return nil, r.err
	}
	if r.b == nil {
		return []byte{}, nil
	}
	return r.b, nil
}

func (c *Cipher) observe(op, keyID string, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	if c.duration != nil {
		c.duration.WithLabelValues(op, outcome).Observe(elapsed.Seconds())
	}
	if c.log == nil {
		return
	}
	entry := c.log.WithFields(logrus.Fields{
		"component":   "envelope",
		"event":       "kms_" + op,
		"status":      outcome,
		"duration_ms": elapsed.Milliseconds(),
	})
	if keyID != "" {
		entry = entry.WithField("key_id", keyID)
	}
	if err != nil {
		entry.WithError(err).Warn("key-management call failed")
		return
	}
	entry.Debug("key-management call completed")
}
