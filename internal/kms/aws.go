package kms

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docvault/internal/config"
)

// kmsAPI is the subset of the AWS KMS client used here.
type kmsAPI interface {
	GenerateDataKey(ctx context.Context, params *kms.GenerateDataKeyInput, optFns ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// AWS encrypts through AWS KMS (or a compatible endpoint such as LocalStack).
//
// KMS refuses direct encryption of payloads over 4 KiB, so each call asks KMS for a
// fresh data key, seals the payload locally with it and stores the KMS-wrapped key
// in front of the sealed bytes:
//
//	uint32 len(wrappedKey) | wrappedKey | nonce | sealed payload
//
// The plaintext data key lives only for the duration of one call.
type AWS struct {
	api kmsAPI
}

// NewAWS loads the AWS SDK configuration and builds the KMS client.
func NewAWS(ctx context.Context, cfg config.KMSConfig) (*AWS, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := kms.NewFromConfig(awsCfg, func(o *kms.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &AWS{api: client}, nil
}

var _ Client = (*AWS)(nil)

func (a *AWS) Encrypt(ctx context.Context, keyID string, plaintext []byte) ([]byte, error) {
	if keyID == "" {
		return nil, ErrKeyIDRequired
	}
	dk, err := a.api.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(keyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, fmt.Errorf("generate data key: %w", err)
	}
	defer clear(dk.Plaintext)

	sealed, err := seal(dk.Plaintext, plaintext, dk.CiphertextBlob)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 4, 4+len(dk.CiphertextBlob)+len(sealed))
	binary.BigEndian.PutUint32(out, uint32(len(dk.CiphertextBlob)))
	out = append(out, dk.CiphertextBlob...)
	return append(out, sealed...), nil
}

func (a *AWS) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 4 {
		return nil, ErrMalformedCipher
	}
	n := binary.BigEndian.Uint32(ciphertext[:4])
	if uint64(len(ciphertext)-4) < uint64(n) {
		return nil, ErrMalformedCipher
	}
	wrapped, sealed := ciphertext[4:4+n], ciphertext[4+n:]

	dk, err := a.api.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: wrapped})
	if err != nil {
		return nil, fmt.Errorf("decrypt data key: %w", err)
	}
	defer clear(dk.Plaintext)

	return open(dk.Plaintext, sealed, wrapped)
}
