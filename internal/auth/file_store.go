package auth

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/mytube/backend/internal/models"
)

// FileStore persists session state as a small JSON document on disk, the
// server-side analogue of the browser's local storage. When constructed with
// a seal key the document is encrypted at rest so the refresh token never
// touches disk in the clear.
type FileStore struct {
	path string
	aead cipher.AEAD

	mu sync.Mutex
}

type storeDocument struct {
	Tokens       *models.AuthTokens `json:"session.tokens,omitempty"`
	PendingState string             `json:"session.pendingOAuthState,omitempty"`
}

// NewFileStore constructs a file-backed token store. sealKey is optional; a
// non-empty value must be 32 bytes of base64.
func NewFileStore(path, sealKey string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("auth: file store path must not be empty")
	}

	store := &FileStore{path: path}
	if sealKey != "" {
		key, err := base64.StdEncoding.DecodeString(sealKey)
		if err != nil {
			return nil, fmt.Errorf("decode seal key: %w", err)
		}
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("init token sealing: %w", err)
		}
		store.aead = aead
	}
	return store, nil
}

func (s *FileStore) SaveTokens(_ context.Context, tokens models.AuthTokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Tokens = &tokens
	return s.persist(doc)
}

func (s *FileStore) LoadTokens(context.Context) (models.AuthTokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return models.AuthTokens{}, err
	}
	if doc.Tokens == nil {
		return models.AuthTokens{}, ErrNoSession
	}
	return *doc.Tokens, nil
}

func (s *FileStore) ClearTokens(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Tokens = nil
	return s.persist(doc)
}

func (s *FileStore) SaveState(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.PendingState = state
	return s.persist(doc)
}

func (s *FileStore) LoadState(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", err
	}
	if doc.PendingState == "" {
		return "", ErrNoSession
	}
	return doc.PendingState, nil
}

func (s *FileStore) ClearState(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.PendingState = ""
	return s.persist(doc)
}

func (s *FileStore) load() (storeDocument, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storeDocument{}, nil
		}
		return storeDocument{}, fmt.Errorf("read token store: %w", err)
	}

	if s.aead != nil {
		if len(raw) < s.aead.NonceSize() {
			return storeDocument{}, errors.New("token store file truncated")
		}
		nonce, sealed := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
		raw, err = s.aead.Open(nil, nonce, sealed, nil)
		if err != nil {
			return storeDocument{}, fmt.Errorf("unseal token store: %w", err)
		}
	}

	var doc storeDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return storeDocument{}, fmt.Errorf("parse token store: %w", err)
	}
	return doc, nil
}

func (s *FileStore) persist(doc storeDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode token store: %w", err)
	}

	if s.aead != nil {
		nonce := make([]byte, s.aead.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return fmt.Errorf("seal token store: %w", err)
		}
		raw = append(nonce, s.aead.Seal(nil, nonce, raw, nil)...)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token store directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write token store: %w", err)
	}
	return nil
}
