package security

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	encryptor, err := NewEncryptor(key)
	require.NoError(t, err)
	return encryptor
}

func TestEncryptor_EncryptDecrypt(t *testing.T) {
	encryptor := newTestEncryptor(t)

	testCases := []struct {
		name      string
		plaintext string
	}{
		{name: "simple text", plaintext: "Hello, World!"},
		{name: "phone number", plaintext: "0912-345-678"},
		{name: "empty string", plaintext: ""},
		{name: "unicode text", plaintext: "最近睡不好，工作壓力很大"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, err := encryptor.Encrypt(tc.plaintext)
			require.NoError(t, err)

			if tc.plaintext == "" {
				assert.Equal(t, "", ciphertext)
				return
			}

			assert.NotEqual(t, tc.plaintext, ciphertext)
			assert.True(t, strings.HasPrefix(ciphertext, sealedPrefix))

			decrypted, err := encryptor.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tc.plaintext, decrypted)
		})
	}
}

func TestEncryptor_InvalidKey(t *testing.T) {
	testCases := []struct {
		name    string
		keySize int
	}{
		{name: "too short", keySize: 16},
		{name: "too long", keySize: 64},
		{name: "empty", keySize: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key := make([]byte, tc.keySize)
			_, err := NewEncryptor(key)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "encryption key must be 32 bytes")
		})
	}
}

func TestNewEncryptorFromBase64(t *testing.T) {
	enc, err := NewEncryptorFromBase64("")
	require.NoError(t, err)
	assert.Nil(t, enc)

	_, err = NewEncryptorFromBase64("%%%")
	assert.Error(t, err)

	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	enc, err = NewEncryptorFromBase64(key)
	require.NoError(t, err)
	assert.NotNil(t, enc)
}

func TestEncryptor_NilPassesThrough(t *testing.T) {
	var encryptor *Encryptor

	out, err := encryptor.Encrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	out, err = encryptor.Decrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	_, err = encryptor.Decrypt(sealedPrefix + "AAAA")
	assert.Error(t, err)
}

func TestEncryptor_SealAndOpenDetail(t *testing.T) {
	encryptor := newTestEncryptor(t)

	detail := model.AppointmentDetail{
		Name:            "王小明",
		Phone:           "0912345678",
		MainConcerns:    "焦慮、失眠",
		PreviousTherapy: true,
		Urgency:         model.UrgencyHigh,
		SpecialNeeds:    "",
	}

	sealed, err := encryptor.SealDetail(detail)
	require.NoError(t, err)

	assert.Equal(t, detail.Name, sealed.Name, "name is not encrypted")
	assert.NotEqual(t, detail.Phone, sealed.Phone)
	assert.NotEqual(t, detail.MainConcerns, sealed.MainConcerns)
	assert.Equal(t, "", sealed.SpecialNeeds)

	opened, err := encryptor.OpenDetail(sealed)
	require.NoError(t, err)
	assert.Equal(t, detail, opened)
}

func TestEncryptor_PlaintextRowsReadBack(t *testing.T) {
	encryptor := newTestEncryptor(t)

	out, err := encryptor.Decrypt("stored before encryption was enabled")
	require.NoError(t, err)
	assert.Equal(t, "stored before encryption was enabled", out)
}

func TestEncryptor_InvalidCiphertext(t *testing.T) {
	encryptor := newTestEncryptor(t)

	testCases := []struct {
		name       string
		ciphertext string
	}{
		{name: "invalid base64", ciphertext: sealedPrefix + "not-valid-base64!!!"},
		{name: "too short", ciphertext: sealedPrefix + "YWJj"},
		{name: "corrupted data", ciphertext: sealedPrefix + "YWJjZGVmZ2hpamtsbW5vcHFyc3R1dnd4eXo="},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := encryptor.Decrypt(tc.ciphertext)
			assert.Error(t, err)
		})
	}
}
