package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5" // #nosec G501 - EVP_BytesToKey derivation, required for envelope compatibility
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// The login form encrypts credentials in the browser with CryptoJS, which
// produces the classic OpenSSL envelope:
//
//	base64( "Salted__" | 8-byte salt | AES-256-CBC ciphertext )
//
// with key and IV derived from the passphrase via the MD5-based
// EVP_BytesToKey construction. This exists to interoperate with that
// client library, not as original cryptographic design.

const opensslSaltHeader = "Salted__"

var ErrEnvelope = errors.New("cryptox: malformed or undecryptable envelope")

// OpenEnvelope decrypts a CryptoJS/OpenSSL envelope with the given passphrase.
func OpenEnvelope(encoded, passphrase string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrEnvelope
	}
	if len(data) < 16 || string(data[:8]) != opensslSaltHeader {
		return nil, ErrEnvelope
	}

	salt := data[8:16]
	ciphertext := data[16:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrEnvelope
	}

	key, iv := evpBytesToKey(passphrase, salt, 32, aes.BlockSize)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	out, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, ErrEnvelope
	}
	return out, nil
}

// SealEnvelope produces an envelope OpenEnvelope (and CryptoJS) can decrypt.
// The server never seals login payloads itself; this is for the Go login SDK
// and for tests.
func SealEnvelope(plaintext []byte, passphrase string) (string, error) {
	salt := make([]byte, 8)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key, iv := evpBytesToKey(passphrase, salt, 32, aes.BlockSize)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	var buf bytes.Buffer
	buf.WriteString(opensslSaltHeader)
	buf.Write(salt)
	buf.Write(ciphertext)
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// evpBytesToKey implements OpenSSL's EVP_BytesToKey with MD5 and one round,
// the derivation CryptoJS uses for passphrase-based encryption.
func evpBytesToKey(passphrase string, salt []byte, keyLen, ivLen int) (key, iv []byte) {
	var derived []byte
	var prev []byte
	for len(derived) < keyLen+ivLen {
		h := md5.New() // #nosec G401 - see package note on envelope compatibility
		h.Write(prev)
		h.Write([]byte(passphrase))
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+ivLen]
}
