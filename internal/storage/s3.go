package storage

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/pbkdf2"
)

// sealedMagic prefixes bundles encrypted with Seal.
const sealedMagic = "GCM3NCR0"

const (
	saltLen    = 16
	nonceLen   = 12
	pbkdf2Iter = 100000
)

var ErrSealedNoPassphrase = errors.New("object is encrypted but no passphrase is configured")

// objectAPI is the part of the S3 client we use.
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Client reads and writes knowledge bundles, optionally sealed with a passphrase.
type S3Client struct {
	client     objectAPI
	bucketName string
	passphrase string
}

// NewS3Client creates a new S3 client from the default AWS credential chain.
func NewS3Client(ctx context.Context, bucketName, passphrase string) (*S3Client, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3Client(s3.NewFromConfig(cfg), bucketName, passphrase), nil
}

func newS3Client(api objectAPI, bucketName, passphrase string) *S3Client {
	return &S3Client{client: api, bucketName: bucketName, passphrase: passphrase}
}

func (s *S3Client) Bucket() string { return s.bucketName }

// Head checks that the bucket exists and is reachable with our credentials.
func (s *S3Client) Head(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucketName)}); err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucketName, err)
	}
	return nil
}

// Fetch downloads key and opens it when it is sealed.
func (s *S3Client) Fetch(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object: %w", err)
	}

	sealed := IsSealed(data)
	if sealed {
		if s.passphrase == "" {
			return nil, ErrSealedNoPassphrase
		}
		if data, err = Open(data, s.passphrase); err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("bucket", s.bucketName).
		Str("key", key).
		Bool("sealed", sealed).
		Int("size", len(data)).
		Msg("downloaded object from S3")
	return data, nil
}

// Upload stores data under key, sealing it when a passphrase is configured.
func (s *S3Client) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	body := data
	meta := map[string]string{"encrypted": "false"}
	if s.passphrase != "" {
		sealed, err := Seal(data, s.passphrase)
		if err != nil {
			return fmt.Errorf("failed to seal data: %w", err)
		}
		body = sealed
		meta = map[string]string{"encrypted": "true", "encryption-format": sealedMagic}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.Info().Str("bucket", s.bucketName).Str("key", key).Str("encrypted", meta["encrypted"]).Msg("uploaded object to S3")
	return nil
}

// IsSealed reports whether data carries the Seal header.
func IsSealed(data []byte) bool {
	return len(data) >= len(sealedMagic) && string(data[:len(sealedMagic)]) == sealedMagic
}

// Seal encrypts data with AES-256-GCM under a PBKDF2-derived key.
// Format: magic(8) + salt(16) + nonce(12) + ciphertext + tag(16).
func Seal(data []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltLen)
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(sealedMagic)+saltLen+nonceLen+len(data)+gcm.Overhead())
	out = append(out, sealedMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

// Open reverses Seal.
func Open(sealed []byte, passphrase string) ([]byte, error) {
	if !IsSealed(sealed) || len(sealed) < len(sealedMagic)+saltLen+nonceLen+16 {
		return nil, fmt.Errorf("GCM data too short or missing header: %d bytes", len(sealed))
	}
	rest := sealed[len(sealedMagic):]
	salt, nonce, ciphertext := rest[:saltLen], rest[saltLen:saltLen+nonceLen], rest[saltLen+nonceLen:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("GCM decryption failed: %w", err)
	}
	return plaintext, nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iter, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
