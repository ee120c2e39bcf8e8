package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const envelopePrefix = "enc:v1:"

// mediaReferencePattern recognises storage/media URLs that bypass the cipher
// so the client can render them without a decrypt round-trip.
var mediaReferencePattern = regexp.MustCompile(`^(https?://\S+/)?(storage|media|uploads)/\S+$`)

// CipherService implements the transparent per-session content-encryption
// layer. Keys are generated at session start, held only in process memory
// and destroyed on sign-out; nothing here is ever persisted.
type CipherService interface {
	StartSession(sessionID string) error
	EndSession(sessionID string)
	Encrypt(sessionID, plaintext string) string
	Decrypt(ciphertext string) string
}

type cipherService struct {
	mu     sync.RWMutex
	keys   map[string][]byte
	logger zerolog.Logger
}

// NewCipherService constructs the session cipher with an empty keyring.
func NewCipherService(logger zerolog.Logger) CipherService {
	return &cipherService{
		keys:   make(map[string][]byte),
		logger: logger.With().Str("component", "cipher_service").Logger(),
	}
}

func (s *cipherService) StartSession(sessionID string) error {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("failed to generate session key: %w", err)
	}

	s.mu.Lock()
	s.keys[sessionID] = key
	s.mu.Unlock()

	return nil
}

func (s *cipherService) EndSession(sessionID string) {
	s.mu.Lock()
	delete(s.keys, sessionID)
	s.mu.Unlock()
}

func (s *cipherService) sessionKey(sessionID string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[sessionID]
}

// Encrypt seals the plaintext under the session key. Media references and
// keyless sessions pass through unchanged; sending unencrypted beats
// blocking the message.
func (s *cipherService) Encrypt(sessionID, plaintext string) string {
	if IsMediaReference(plaintext) {
		return plaintext
	}

	key := s.sessionKey(sessionID)
	if key == nil {
		return plaintext
	}

	gcm, err := newGCM(key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cipher init failed, sending plaintext")
		return plaintext
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		s.logger.Warn().Err(err).Msg("nonce generation failed, sending plaintext")
		return plaintext
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return envelopePrefix + sessionID + ":" + base64.StdEncoding.EncodeToString(sealed)
}

// Decrypt opens an envelope produced by Encrypt. Anything that is not
// envelope-shaped, references media, or fails cryptographically is returned
// unchanged; a decode error must never reach the message pane.
func (s *cipherService) Decrypt(value string) string {
	if IsMediaReference(value) || !strings.HasPrefix(value, envelopePrefix) {
		return value
	}

	rest := strings.TrimPrefix(value, envelopePrefix)
	sep := strings.IndexByte(rest, ':')
	if sep <= 0 {
		return value
	}

	sessionID, payload := rest[:sep], rest[sep+1:]
	key := s.sessionKey(sessionID)
	if key == nil {
		return value
	}

	gcm, err := newGCM(key)
	if err != nil {
		return value
	}

	sealed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(sealed) < gcm.NonceSize() {
		return value
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return value
	}

	return string(plaintext)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// IsMediaReference reports whether the content is a storage/media URL that
// skips the encryption layer entirely.
func IsMediaReference(content string) bool {
	return mediaReferencePattern.MatchString(strings.TrimSpace(content))
}
