package envelope

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/kms"
	kmsMocks "docvault/internal/kms/mocks"
	"docvault/internal/logging"
)

func newLocalCipher(t *testing.T) *Cipher {
	t.Helper()
	local, err := kms.NewLocal(bytes.Repeat([]byte{3}, 32))
	require.NoError(t, err)
	return New(local, time.Second, logging.Discard())
}

func TestCipher_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newLocalCipher(t)

	for _, keyID := range []string{"alias/docs", "key-2"} {
		for _, p := range [][]byte{[]byte("hello"), {}, bytes.Repeat([]byte{0, 1, 2}, 10000)} {
			ct, err := c.Encrypt(ctx, keyID, p)
			require.NoError(t, err)

			pt, err := c.Decrypt(ctx, ct)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(p, pt))
			assert.NotNil(t, pt)
		}
	}
}

func TestCipher_Encrypt(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		setupMock func(m *kmsMocks.MockClient)
		wantErr   error
		want      []byte
	}{
		{
			name: "happy path",
			setupMock: func(m *kmsMocks.MockClient) {
				m.On("Encrypt", mock.Anything, "k1", []byte("plain")).Return([]byte("cipher"), nil)
			},
			want: []byte("cipher"),
		},
		{
			name: "client error is wrapped",
			setupMock: func(m *kmsMocks.MockClient) {
				m.On("Encrypt", mock.Anything, "k1", []byte("plain")).Return(nil, errors.New("kms down"))
			},
			wantErr: ErrEncryptionFailure,
		},
		{
			name: "partial bytes with error are dropped",
			setupMock: func(m *kmsMocks.MockClient) {
				m.On("Encrypt", mock.Anything, "k1", []byte("plain")).Return([]byte("cip"), errors.New("reset"))
			},
			wantErr: ErrEncryptionFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(kmsMocks.MockClient)
			tt.setupMock(m)
			c := New(m, time.Second, logging.Discard())

			got, err := c.Encrypt(ctx, "k1", []byte("plain"))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestCipher_DecryptError(t *testing.T) {
	m := new(kmsMocks.MockClient)
	cause := errors.New("invalid ciphertext")
	m.On("Decrypt", mock.Anything, []byte("bad")).Return(nil, cause)

	c := New(m, time.Second, logging.Discard())
	got, err := c.Decrypt(context.Background(), []byte("bad"))

	assert.ErrorIs(t, err, ErrDecryptionFailure)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, got)
}

func TestCipher_TimeoutWithUncooperativeClient(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	m := new(kmsMocks.MockClient)
	m.On("Encrypt", mock.Anything, "k1", mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return([]byte("late"), nil)

	c := New(m, 50*time.Millisecond, logging.Discard())

	start := time.Now()
	got, err := c.Encrypt(context.Background(), "k1", []byte("x"))

	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, ErrEncryptionFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, got)
}

func TestCipher_CallerCancellation(t *testing.T) {
	m := new(kmsMocks.MockClient)
	m.On("Decrypt", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return(nil, context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	c := New(m, time.Minute, logging.Discard())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	got, err := c.Decrypt(ctx, []byte("x"))

	assert.ErrorIs(t, err, ErrDecryptionFailure)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}

func TestNew_DefaultTimeout(t *testing.T) {
	c := New(new(kmsMocks.MockClient), 0, nil)
	assert.Equal(t, DefaultTimeout, c.timeout)
}

func TestCipher_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newLocalCipher(t)
	require.NoError(t, c.Register(reg))

	ct, err := c.Encrypt(context.Background(), "k", []byte("x"))
	require.NoError(t, err)
	_, err = c.Decrypt(context.Background(), ct)
	require.NoError(t, err)

	assert.Equal(t, 2, testutil.CollectAndCount(c.duration))
	assert.Error(t, c.Register(reg), "second registration must collide")
}
