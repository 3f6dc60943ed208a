package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// Encryption key for contact emails at rest (in production, use a secure key
// management system)
var encryptionKey = []byte("32-byte-key-for-aes-encryption!!")

// Encrypt seals a contact field with AES-GCM and returns the ciphertext and
// the nonce, both stored alongside the row.
func Encrypt(plaintext string) ([]byte, []byte, error) {
	aesgcm, err := newGCM()
	if err != nil {
		return nil, nil, err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}

	ciphertext := aesgcm.Seal(nil, nonce, []byte(plaintext), nil)
	return ciphertext, nonce, nil
}

// Decrypt opens an AES-GCM ciphertext with its stored nonce.
func Decrypt(ciphertext, nonce []byte) (string, error) {
	aesgcm, err := newGCM()
	if err != nil {
		return "", err
	}
	if len(nonce) != aesgcm.NonceSize() {
		return "", errors.New("bad nonce length")
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
