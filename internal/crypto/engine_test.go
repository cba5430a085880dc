package crypto

import (
	"bytes"
	"crypto/aes"
	"errors"
	"strings"
	"testing"
)

func testKey(t *testing.T, fill byte) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = fill
	}
	return key
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	engine, err := NewEngine(testKey(t, 0x42), nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	cases := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("hello sealed world"),
		bytes.Repeat([]byte{0x00}, aes.BlockSize),
		bytes.Repeat([]byte("0123456789abcdef"), 64),
		{0xff, 0x10, 0x00, 0x01},
	}
	for _, plaintext := range cases {
		ciphertext, err := engine.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("encrypt %d bytes: %v", len(plaintext), err)
		}
		if len(ciphertext)%aes.BlockSize != 0 {
			t.Fatalf("ciphertext length %d is not block aligned", len(ciphertext))
		}
		if len(plaintext) > 0 && bytes.Contains(ciphertext, plaintext) {
			t.Fatal("ciphertext contains plaintext")
		}

		decrypted, err := engine.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("decrypt %d bytes: %v", len(plaintext), err)
		}
		if !bytes.Equal(decrypted, plaintext) {
			t.Fatalf("round trip mismatch: got %q, want %q", decrypted, plaintext)
		}
	}
}

func TestEncrypt_FixedIVIsDeterministic(t *testing.T) {
	engine, err := NewEngine(testKey(t, 0x01), nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	plaintext := []byte("same bytes in, same bytes out")
	first, err := engine.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("first encrypt: %v", err)
	}
	second, err := engine.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("second encrypt: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("zero-IV engine must produce identical ciphertext for identical plaintext")
	}
}

func TestEncrypt_IVSourceIsReplaceable(t *testing.T) {
	engine, err := NewEngine(testKey(t, 0x01), RandomIV)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	plaintext := []byte("same bytes in")
	first, err := engine.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("first encrypt: %v", err)
	}
	second, err := engine.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("second encrypt: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Fatal("random-IV engine produced identical ciphertexts")
	}
}

func TestDecrypt_WrongKeyFailsWithErrDecrypt(t *testing.T) {
	engine, err := NewEngine(testKey(t, 0x42), nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	other, err := NewEngine(testKey(t, 0x43), nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	ciphertext, err := engine.Encrypt([]byte("secret payload meant for one key"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := other.Decrypt(ciphertext); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt with mismatched key, got %v", err)
	}
}

func TestDecrypt_MalformedCiphertext(t *testing.T) {
	engine, err := NewEngine(testKey(t, 0x42), nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	for _, ciphertext := range [][]byte{
		nil,
		{},
		[]byte("short"),
		bytes.Repeat([]byte{0x00}, aes.BlockSize+1),
	} {
		if _, err := engine.Decrypt(ciphertext); !errors.Is(err, ErrDecrypt) {
			t.Fatalf("expected ErrDecrypt for %d bytes, got %v", len(ciphertext), err)
		}
	}
}

func TestNewEngine_RejectsBadKey(t *testing.T) {
	if _, err := NewEngine([]byte("too short"), nil); err == nil {
		t.Fatal("expected error for short key")
	}
	if _, err := NewEngine(make([]byte, 64), nil); err == nil {
		t.Fatal("expected error for long key")
	}
}

func TestParseMasterKey(t *testing.T) {
	key, err := ParseMasterKey(strings.Repeat("ab", KeySize))
	if err != nil {
		t.Fatalf("parse master key: %v", err)
	}
	if len(key) != KeySize {
		t.Fatalf("expected %d bytes, got %d", KeySize, len(key))
	}

	if _, err := ParseMasterKey("not hex at all!"); err == nil {
		t.Fatal("expected error for non-hex key")
	}
	if _, err := ParseMasterKey("abcd"); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestSecretAndTokenGenerators(t *testing.T) {
	secret, err := NewUserSecret()
	if err != nil {
		t.Fatalf("new user secret: %v", err)
	}
	if len(secret) != userSecretBytes*2 {
		t.Fatalf("expected %d hex chars, got %d", userSecretBytes*2, len(secret))
	}

	token, err := NewDownloadToken()
	if err != nil {
		t.Fatalf("new download token: %v", err)
	}
	if len(token) != downloadTokenBytes*2 {
		t.Fatalf("expected %d hex chars, got %d", downloadTokenBytes*2, len(token))
	}
	if token == secret {
		t.Fatal("token and secret must be independent values")
	}

	second, err := NewDownloadToken()
	if err != nil {
		t.Fatalf("second token: %v", err)
	}
	if token == second {
		t.Fatal("two generated tokens collided")
	}
}

func TestPKCS7Unpad_RejectsBadPadding(t *testing.T) {
	for _, data := range [][]byte{
		append(bytes.Repeat([]byte{0x01}, 15), 0x00),        // zero pad byte
		append(bytes.Repeat([]byte{0x01}, 15), 0x11),        // pad byte > block size
		append(bytes.Repeat([]byte{0x02}, 14), 0x01, 0x02),  // inconsistent run
		bytes.Repeat([]byte{0x03}, 15),                      // not block aligned
	} {
		if _, ok := pkcs7Unpad(data, aes.BlockSize); ok {
			t.Fatalf("expected padding rejection for %x", data)
		}
	}
}
