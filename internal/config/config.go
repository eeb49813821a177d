// Package config locates gistfinder's files on disk and manages the stored
// GitHub credentials.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

const (
	// KeyUser is the credential file key holding the GitHub user name.
	KeyUser = "GIST_USER"
	// KeyToken is the credential file key holding the GitHub access token.
	KeyToken = "GIST_TOKEN"

	dirName         = ".gistfinder"
	dbFileName      = "database.sqlite"
	credentialsName = "config.json"
	logFileName     = "gistfinder.log"
)

// Paths holds every on-disk location gistfinder uses. It is built once by the
// CLI and handed to whichever component needs a file.
type Paths struct {
	Dir         string
	DBFile      string
	Credentials string
	LogFile     string
}

// DefaultPaths returns the paths under ~/.gistfinder.
func DefaultPaths() (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve home directory: %w", err)
	}
	return PathsFor(filepath.Join(home, dirName)), nil
}

// PathsFor returns the paths rooted at dir.
func PathsFor(dir string) Paths {
	return Paths{
		Dir:         dir,
		DBFile:      filepath.Join(dir, dbFileName),
		Credentials: filepath.Join(dir, credentialsName),
		LogFile:     filepath.Join(dir, logFileName),
	}
}

// EnsureDir creates the config directory if it does not exist.
func (p Paths) EnsureDir() error {
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return nil
}

// Credentials identifies the GitHub account whose gists are synced.
type Credentials struct {
	User  string
	Token string
}

// ConfigError reports a missing credential together with the command that
// fixes it.
type ConfigError struct {
	Key         string
	Remediation string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured\n%s", e.Key, e.Remediation)
}

// CredentialStore reads and writes the credential file. Reads are memoized
// for the life of the process; a value written by another process is only
// seen after a restart.
type CredentialStore struct {
	path string

	once  sync.Once
	creds Credentials
	err   error
}

// NewCredentialStore returns a store backed by the JSON file at path.
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// Path returns the credential file location.
func (s *CredentialStore) Path() string {
	return s.path
}

// Credentials returns the stored credentials. Environment variables named
// GIST_USER and GIST_TOKEN take precedence over the file.
func (s *CredentialStore) Credentials() (Credentials, error) {
	s.once.Do(func() {
		s.creds, s.err = s.load()
	})
	return s.creds, s.err
}

// Require returns the credentials, or a *ConfigError naming the first missing
// key.
func (s *CredentialStore) Require() (Credentials, error) {
	creds, err := s.Credentials()
	if err != nil {
		return Credentials{}, err
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// Validate reports a *ConfigError when the user or token is empty.
func (c Credentials) Validate() error {
	if c.User == "" {
		return &ConfigError{
			Key:         KeyUser,
			Remediation: "Run 'gistfinder --user <github-username>' to set it.",
		}
	}
	if c.Token == "" {
		return &ConfigError{
			Key:         KeyToken,
			Remediation: "Run 'gistfinder --token <github-access-token>' to set it.",
		}
	}
	return nil
}

func (s *CredentialStore) load() (Credentials, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	_ = v.BindEnv(KeyUser)
	_ = v.BindEnv(KeyToken)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, fmt.Errorf("read credentials %s: %w", s.path, err)
		}
	}

	return Credentials{
		User:  v.GetString(KeyUser),
		Token: v.GetString(KeyToken),
	}, nil
}

// SetUser persists the GitHub user name.
func (s *CredentialStore) SetUser(user string) error {
	return s.set(KeyUser, user)
}

// SetToken persists the GitHub access token.
func (s *CredentialStore) SetToken(token string) error {
	return s.set(KeyToken, token)
}

// set rewrites the file with one key changed. Viper lower-cases keys when it
// writes, so the blob is encoded directly to keep GIST_USER/GIST_TOKEN intact.
func (s *CredentialStore) set(key, value string) error {
	blob := map[string]string{}
	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if len(data) > 0 {
			if err := json.Unmarshal(data, &blob); err != nil {
				return fmt.Errorf("parse credentials %s: %w", s.path, err)
			}
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("read credentials %s: %w", s.path, err)
	}

	blob[key] = value
	out, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(out, '\n'), 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}
