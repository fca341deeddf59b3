package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/vipul43/listing-sync/internal/models"
)

// FileStore keeps the credential in a JSON file. Writes go to a temp file in
// the same directory and are renamed over the target, so a crash mid-write
// leaves either the old or the new payload.
type FileStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With(zap.String("component", "credential_file_store"), zap.String("path", path)),
	}
}

// Save atomically replaces the stored credential.
func (s *FileStore) Save(_ context.Context, cred models.Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credential dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credential: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credential file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to set credential file mode: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	committed = true

	s.logger.Info("Credential saved", zap.Bool("has_refresh_token", cred.HasRefreshToken()))
	return nil
}

// Load returns the stored credential, or absent.
func (s *FileStore) Load(_ context.Context) (*models.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Credential file does not exist, authentication required")
		} else {
			s.logger.Error("Failed to read credential file", zap.Error(err))
		}
		return nil, false
	}

	var cred models.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		s.logger.Error("Stored credential is not valid JSON", zap.Error(err))
		return nil, false
	}

	if !cred.HasAccessToken() {
		s.logger.Error("Stored credential is missing accessToken")
		return nil, false
	}

	return &cred, true
}
