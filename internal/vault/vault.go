// Package vault protects signing-secret material at rest and derives signing
// identities on demand. Decryption fails closed: a wrong password or a
// tampered ciphertext yields ErrDecryptionFailed, never partial plaintext.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// ErrDecryptionFailed is returned on wrong password or tampered data. Fatal
// for the request; retrying with the same inputs cannot succeed.
var ErrDecryptionFailed = errors.New("decryption failed: incorrect password or tampered data")

const (
	// kdfIterations is deliberately slow; run Decrypt off the hot path.
	kdfIterations = 100_000
	keyLen        = 32
	saltLen       = 16
	nonceLen      = 12
	tagLen        = 16
)

// EncryptedSecret is the at-rest envelope for a symmetric-encrypted secret.
// All fields are hex encoded; the GCM authentication tag is stored apart from
// the ciphertext so tampering with either fails verification.
type EncryptedSecret struct {
	Salt      string `json:"salt"`
	IV        string `json:"iv"`
	Encrypted string `json:"encrypted"`
	Tag       string `json:"tag"`
}

// Encrypt derives a key from password with PBKDF2-SHA256 over a fresh random
// salt and seals secret with AES-256-GCM under a random nonce.
func Encrypt(secret, password string) (EncryptedSecret, error) {
	if secret == "" {
		return EncryptedSecret{}, errors.New("secret must not be empty")
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return EncryptedSecret{}, fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return EncryptedSecret{}, fmt.Errorf("generate nonce: %w", err)
	}

	aead, err := newGCM(password, salt)
	if err != nil {
		return EncryptedSecret{}, err
	}

	sealed := aead.Seal(nil, nonce, []byte(secret), nil)
	ciphertext, tag := sealed[:len(sealed)-tagLen], sealed[len(sealed)-tagLen:]

	return EncryptedSecret{
		Salt:      hex.EncodeToString(salt),
		IV:        hex.EncodeToString(nonce),
		Encrypted: hex.EncodeToString(ciphertext),
		Tag:       hex.EncodeToString(tag),
	}, nil
}

// Decrypt re-derives the key with the stored salt and opens the envelope,
// verifying the authentication tag. Any verification failure, malformed
// field, or wrong password maps to ErrDecryptionFailed.
func Decrypt(enc EncryptedSecret, password string) (string, error) {
	salt, err := hex.DecodeString(enc.Salt)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	nonce, err := hex.DecodeString(enc.IV)
	if err != nil || len(nonce) != nonceLen {
		return "", ErrDecryptionFailed
	}
	ciphertext, err := hex.DecodeString(enc.Encrypted)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	tag, err := hex.DecodeString(enc.Tag)
	if err != nil || len(tag) != tagLen {
		return "", ErrDecryptionFailed
	}

	aead, err := newGCM(password, salt)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, kdfIterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return aead, nil
}
