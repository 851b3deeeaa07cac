package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/mindcare-tw/mindcare-backend/pkg/model"
)

// sealedPrefix marks values written by Encrypt so rows stored before a key
// was configured still read back as plain text.
const sealedPrefix = "enc:v1:"

// Encryptor handles AES-256 encryption of intake details at rest.
// A nil *Encryptor passes values through unchanged.
type Encryptor struct {
	key []byte
}

// NewEncryptor creates a new encryptor with a 32-byte key for AES-256
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes for AES-256, got %d bytes", len(key))
	}

	return &Encryptor{
		key: key,
	}, nil
}

// NewEncryptorFromBase64 decodes a base64 key. An empty key returns a nil
// encryptor, which disables encryption.
func NewEncryptorFromBase64(encoded string) (*Encryptor, error) {
	if encoded == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	return NewEncryptor(key)
}

// Encrypt encrypts plaintext using AES-256-GCM
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if e == nil || plaintext == "" {
		return plaintext, nil
	}

	gcm, err := e.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts ciphertext using AES-256-GCM
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, sealedPrefix) {
		return ciphertext, nil
	}
	if e == nil {
		return "", fmt.Errorf("value is encrypted but no key is configured")
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	gcm, err := e.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

func (e *Encryptor) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// SealDetail encrypts the free-text intake fields of an appointment
func (e *Encryptor) SealDetail(d model.AppointmentDetail) (model.AppointmentDetail, error) {
	return e.mapDetail(d, e.Encrypt)
}

// OpenDetail reverses SealDetail
func (e *Encryptor) OpenDetail(d model.AppointmentDetail) (model.AppointmentDetail, error) {
	return e.mapDetail(d, e.Decrypt)
}

func (e *Encryptor) mapDetail(d model.AppointmentDetail, fn func(string) (string, error)) (model.AppointmentDetail, error) {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"phone", &d.Phone},
		{"main_concerns", &d.MainConcerns},
		{"special_needs", &d.SpecialNeeds},
	}
	for _, f := range fields {
		v, err := fn(*f.ptr)
		if err != nil {
			return model.AppointmentDetail{}, fmt.Errorf("field %s: %w", f.name, err)
		}
		*f.ptr = v
	}
	return d, nil
}
