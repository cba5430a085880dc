// Package crypto implements the symmetric encryption engine and the random
// secret/token generators for the file exchange.
//
// KNOWN WEAKNESS: the default IV source returns the same all-zero IV for
// every encryption, so identical plaintext prefixes produce identical
// ciphertext prefixes across files. There is no semantic security. The IV is
// injected as a policy so a per-artifact random IV can replace it without
// touching callers.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// KeySize is the required master key length (AES-256).
	KeySize = 32

	userSecretBytes    = 8
	downloadTokenBytes = 32
)

// ErrDecrypt is returned for every decryption failure. Bad key material and
// corrupted ciphertext are deliberately indistinguishable.
var ErrDecrypt = errors.New("decryption failed: key or data invalid")

// IVSource supplies the initialization vector for one encryption.
type IVSource func() ([]byte, error)

// ZeroIV returns the fixed all-zero IV used by the primary path.
func ZeroIV() ([]byte, error) {
	return make([]byte, aes.BlockSize), nil
}

// RandomIV returns a fresh random IV. Not used by the primary path; callers
// switching to it must also store the IV alongside the ciphertext.
func RandomIV() ([]byte, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// Engine encrypts and decrypts artifact bytes under one process-wide master
// key. The key is injected explicitly; the engine performs no ambient lookup
// of secret material.
type Engine struct {
	key      []byte
	ivSource IVSource
}

// NewEngine creates an Engine from a 32-byte master key. A nil ivSource
// selects ZeroIV.
func NewEngine(masterKey []byte, ivSource IVSource) (*Engine, error) {
	if len(masterKey) != KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeySize, len(masterKey))
	}
	if ivSource == nil {
		ivSource = ZeroIV
	}
	key := make([]byte, KeySize)
	copy(key, masterKey)
	return &Engine{key: key, ivSource: ivSource}, nil
}

// ParseMasterKey decodes a hex-encoded master key.
func ParseMasterKey(raw string) ([]byte, error) {
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("master key must be hex encoded: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// Encrypt returns the AES-256-CBC ciphertext of plaintext with PKCS#7
// padding. The IV comes from the engine's IV source and is not prepended to
// the output; decryption regenerates it from the same source.
func (e *Engine) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	iv, err := e.ivSource()
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// Decrypt reverses Encrypt. It fails with ErrDecrypt when the ciphertext is
// malformed or the padding does not verify; it never returns partially
// decrypted bytes without signaling failure.
func (e *Engine) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrDecrypt
	}
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	iv, err := e.ivSource()
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)
	plaintext, ok := pkcs7Unpad(padded, aes.BlockSize)
	if !ok {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// NewUserSecret returns the human-shareable secret delivered to the
// recipient out-of-band. It is not key material: the primary decrypt path
// uses only the master key.
func NewUserSecret() (string, error) {
	return randomHex(userSecretBytes)
}

// NewDownloadToken returns a 256-bit capability token. It authorizes exactly
// one retrieval and is never used as key material.
func NewDownloadToken() (string, error) {
	return randomHex(downloadTokenBytes)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, false
		}
	}
	return data[:len(data)-padLen], true
}
