package service

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	cipher := NewCipherService(zerolog.Nop())
	require.NoError(t, cipher.StartSession("s1"))

	encrypted := cipher.Encrypt("s1", "hello world")
	require.NotEqual(t, "hello world", encrypted)
	require.True(t, strings.HasPrefix(encrypted, "enc:v1:s1:"))

	require.Equal(t, "hello world", cipher.Decrypt(encrypted))
}

func TestCipherCrossSessionDecrypt(t *testing.T) {
	cipher := NewCipherService(zerolog.Nop())
	require.NoError(t, cipher.StartSession("s1"))
	require.NoError(t, cipher.StartSession("s2"))

	encrypted := cipher.Encrypt("s1", "from the first session")

	// The envelope names the originating session, so any process-local
	// reader resolves the right key.
	require.Equal(t, "from the first session", cipher.Decrypt(encrypted))
}

func TestCipherKeylessSessionPassesThrough(t *testing.T) {
	cipher := NewCipherService(zerolog.Nop())

	require.Equal(t, "plain", cipher.Encrypt("unknown", "plain"))
}

func TestCipherEndSessionDestroysKey(t *testing.T) {
	cipher := NewCipherService(zerolog.Nop())
	require.NoError(t, cipher.StartSession("s1"))

	encrypted := cipher.Encrypt("s1", "secret")
	cipher.EndSession("s1")

	// Without the key the envelope comes back unchanged rather than erroring.
	require.Equal(t, encrypted, cipher.Decrypt(encrypted))
}

func TestCipherMediaReferenceBypass(t *testing.T) {
	cipher := NewCipherService(zerolog.Nop())
	require.NoError(t, cipher.StartSession("s1"))

	for _, content := range []string{
		"storage/avatars/u1.png",
		"media/voice/clip.ogg",
		"uploads/doc.pdf",
		"https://cdn.example.com/storage/photo.jpg",
	} {
		require.Equal(t, content, cipher.Encrypt("s1", content))
		require.Equal(t, content, cipher.Decrypt(content))
	}
}

func TestCipherCorruptEnvelopeReturnedUnchanged(t *testing.T) {
	cipher := NewCipherService(zerolog.Nop())
	require.NoError(t, cipher.StartSession("s1"))

	for _, value := range []string{
		"enc:v1:s1:not-base64!!!",
		"enc:v1:s1:",
		"enc:v1::abcd",
		"enc:v1:s1:QUJD", // too short for a nonce
	} {
		require.Equal(t, value, cipher.Decrypt(value))
	}
}

func TestCipherTamperedCiphertextReturnedUnchanged(t *testing.T) {
	cipher := NewCipherService(zerolog.Nop())
	require.NoError(t, cipher.StartSession("s1"))

	encrypted := cipher.Encrypt("s1", "secret")
	tampered := encrypted[:len(encrypted)-4] + "AAAA"

	require.Equal(t, tampered, cipher.Decrypt(tampered))
}
