package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/oauth2"

	"github.com/moldin/gcp-budget-agent/internal/logging"
)

const appCacheDir = "budget-agent"

// DefaultTokenFile is where the user OAuth token is persisted when no path is
// configured.
func DefaultTokenFile() string {
	return filepath.Join(userCacheDir(), appCacheDir, "gmail-token.json")
}

// LoadToken reads a token previously written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("token file holds no access or refresh token")
	}
	return tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// HasToken reports whether a readable token exists at path.
func HasToken(path string) bool {
	_, err := LoadToken(path)
	return err == nil
}

// persistingTokenSource writes refreshed tokens back to disk so the next
// process starts from the newest refresh token.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func newPersistingTokenSource(base oauth2.TokenSource, path string, initial *oauth2.Token, logger *slog.Logger) *persistingTokenSource {
	return &persistingTokenSource{base: base, path: path, logger: logger, last: initial.AccessToken}
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			s.logger.Warn("failed to persist refreshed token", logging.Err(err))
		} else {
			s.logger.Debug("persisted refreshed token", slog.String("token", logging.SanitizeToken(tok.AccessToken)))
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"LOCALAPPDATA", "TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		return os.TempDir()
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
