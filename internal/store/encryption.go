package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize         = 16
	keySize          = 32
	pbkdf2Iterations = 100000
)

// ErrCiphertextCorrupt indicates a stored blob is too short or fails
// authentication, typically because the passphrase changed.
var ErrCiphertextCorrupt = errors.New("ciphertext corrupt or wrong passphrase")

// Cipher encrypts broker credentials with AES-256-GCM. The key is derived
// per blob from the passphrase with PBKDF2-SHA256, so rotating the
// passphrase only requires re-encrypting, never a key file.
type Cipher struct {
	passphrase []byte
}

// NewCipher creates a cipher bound to a passphrase.
func NewCipher(passphrase string) *Cipher {
	return &Cipher{passphrase: []byte(passphrase)}
}

// Encrypt seals the plaintext. The returned blob is salt, nonce and
// ciphertext concatenated; each call uses a fresh salt and nonce.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := c.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	blob := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	return aead.Seal(blob, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt.
func (c *Cipher) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < saltSize {
		return nil, ErrCiphertextCorrupt
	}
	salt, rest := blob[:saltSize], blob[saltSize:]

	aead, err := c.aead(salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < aead.NonceSize() {
		return nil, ErrCiphertextCorrupt
	}
	nonce, ciphertext := rest[:aead.NonceSize()], rest[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrCiphertextCorrupt
	}
	return plaintext, nil
}

func (c *Cipher) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.passphrase, salt, pbkdf2Iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to build GCM: %w", err)
	}
	return aead, nil
}
