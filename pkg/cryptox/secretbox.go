package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MFA secrets are stored AES-256-ECB encrypted. ECB is a deliberately
// preserved legacy construction: each plaintext is a single random base32
// secret, and existing databases hold ciphertexts in exactly this format,
// so decryption must stay byte-compatible. New deployments still get a
// random per-install key.
//
// The key comes from the NODEWATCH_MFA_KEY environment variable (>= 16
// characters) or a generated hex key persisted next to the database.

const minMFAKeyLength = 16

var (
	ErrDecryptFailed = errors.New("cryptox: secret decryption failed")

	mfaKeyMu   sync.Mutex
	mfaKey     string
	mfaKeyFile string
)

// SetMFAKeyPath configures where the generated MFA encryption key is
// persisted when no environment key is supplied.
func SetMFAKeyPath(path string) {
	mfaKeyMu.Lock()
	defer mfaKeyMu.Unlock()
	mfaKeyFile = path
	mfaKey = ""
}

func getMFAKey() (string, error) {
	mfaKeyMu.Lock()
	defer mfaKeyMu.Unlock()

	if mfaKey != "" {
		return mfaKey, nil
	}

	if env := os.Getenv("NODEWATCH_MFA_KEY"); len(env) >= minMFAKeyLength {
		mfaKey = env
		return mfaKey, nil
	}

	file := filepath.Clean(mfaKeyFile)
	if data, err := os.ReadFile(file); err == nil {
		if k := strings.TrimSpace(string(data)); len(k) >= minMFAKeyLength {
			mfaKey = k
			return mfaKey, nil
		}
	}

	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate MFA key: %w", err)
	}
	key := hex.EncodeToString(raw)

	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return "", err
	}
	if err := os.WriteFile(file, []byte(key), 0600); err != nil {
		return "", err
	}

	mfaKey = key
	return mfaKey, nil
}

// normalizeAESKey pads or truncates key material to the 32 bytes AES-256
// expects, matching openssl's handling of string keys.
func normalizeAESKey(key string) []byte {
	out := make([]byte, 32)
	copy(out, key)
	return out
}

// EncryptSecret encrypts a TOTP secret for storage and returns it base64
// encoded.
func EncryptSecret(secret string) (string, error) {
	key, err := getMFAKey()
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(normalizeAESKey(key))
	if err != nil {
		return "", err
	}

	plaintext := pkcs7Pad([]byte(secret), aes.BlockSize)
	ciphertext := make([]byte, len(plaintext))
	for i := 0; i < len(plaintext); i += aes.BlockSize {
		block.Encrypt(ciphertext[i:i+aes.BlockSize], plaintext[i:i+aes.BlockSize])
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptSecret reverses EncryptSecret.
func DecryptSecret(encoded string) (string, error) {
	key, err := getMFAKey()
	if err != nil {
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecryptFailed
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", ErrDecryptFailed
	}

	block, err := aes.NewCipher(normalizeAESKey(key))
	if err != nil {
		return "", err
	}

	plaintext := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += aes.BlockSize {
		block.Decrypt(plaintext[i:i+aes.BlockSize], ciphertext[i:i+aes.BlockSize])
	}

	out, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(out), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
