package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// KeySize is the length of an AES-256 key.
const KeySize = 32

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new summaries.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried when the active key cannot decrypt a summary,
	// so keys can be rotated without rewriting the archive.
	FallbackKeys [][]byte
}

// envelope replaces the output of an encrypted summary.
type envelope struct {
	Encrypted []byte `json:"__encrypted__"`
}

type encryptionMiddleware struct {
	next   ports.RunStore
	config EncryptionConfig
}

// NewEncryptionMiddleware encrypts the output of archived runs with AES-GCM.
// Metadata (status, steps, timestamps) stays readable for listing and monitoring.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != KeySize {
		return nil, fmt.Errorf("active key must be %d bytes (AES-256), got %d", KeySize, len(config.ActiveKey))
	}
	return func(next ports.RunStore) ports.RunStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, summary domain.RunSummary) error {
	if len(summary.Output) == 0 {
		return m.next.Save(ctx, summary)
	}

	ciphertext, err := encrypt(summary.Output, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt run output: %w", err)
	}
	sealed, err := json.Marshal(envelope{Encrypted: ciphertext})
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	summary.Output = sealed
	return m.next.Save(ctx, summary)
}

func (m *encryptionMiddleware) Load(ctx context.Context, runID string) (domain.RunSummary, error) {
	summary, err := m.next.Load(ctx, runID)
	if err != nil || len(summary.Output) == 0 {
		return summary, err
	}

	var env envelope
	if err := json.Unmarshal(summary.Output, &env); err != nil || len(env.Encrypted) == 0 {
		// Fail secure: with encryption configured every output must be sealed.
		return domain.RunSummary{}, errors.New("run output is missing encrypted data envelope")
	}

	plainText, err := decryptWithRotation(env.Encrypted, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("failed to decrypt run output: %w", err)
	}
	summary.Output = plainText
	return summary, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	for _, key := range append([][]byte{activeKey}, fallbackKeys...) {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
