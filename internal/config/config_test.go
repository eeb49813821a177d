package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func Test_PathsFor_LaysOutFilesUnderDir(t *testing.T) {
	p := PathsFor("/tmp/gf")
	if p.DBFile != filepath.Join("/tmp/gf", "database.sqlite") {
		t.Errorf("unexpected db file %s", p.DBFile)
	}
	if p.Credentials != filepath.Join("/tmp/gf", "config.json") {
		t.Errorf("unexpected credentials file %s", p.Credentials)
	}
}

func Test_CredentialStore_SetThenRead(t *testing.T) {
	t.Setenv(KeyUser, "")
	t.Setenv(KeyToken, "")
	path := filepath.Join(t.TempDir(), "config.json")

	writer := NewCredentialStore(path)
	if err := writer.SetUser("octocat"); err != nil {
		t.Fatal(err)
	}
	if err := writer.SetToken("secret"); err != nil {
		t.Fatal(err)
	}

	creds, err := NewCredentialStore(path).Require()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.User != "octocat" || creds.Token != "secret" {
		t.Errorf("unexpected credentials %+v", creds)
	}
}

func Test_CredentialStore_KeepsUpperCaseKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := NewCredentialStore(path).SetToken("abc"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var blob map[string]string
	if err := json.Unmarshal(data, &blob); err != nil {
		t.Fatal(err)
	}
	if blob["GIST_TOKEN"] != "abc" {
		t.Errorf("expected GIST_TOKEN key in %s", data)
	}
}

func Test_CredentialStore_MissingFileIsConfigError(t *testing.T) {
	t.Setenv(KeyUser, "")
	t.Setenv(KeyToken, "")
	store := NewCredentialStore(filepath.Join(t.TempDir(), "absent.json"))

	_, err := store.Require()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Key != KeyUser {
		t.Errorf("expected missing %s, got %s", KeyUser, cfgErr.Key)
	}
}

func Test_CredentialStore_MissingTokenNamesToken(t *testing.T) {
	t.Setenv(KeyUser, "")
	t.Setenv(KeyToken, "")
	path := filepath.Join(t.TempDir(), "config.json")
	if err := NewCredentialStore(path).SetUser("octocat"); err != nil {
		t.Fatal(err)
	}

	_, err := NewCredentialStore(path).Require()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Key != KeyToken {
		t.Fatalf("expected missing token, got %v", err)
	}
}

func Test_CredentialStore_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := NewCredentialStore(path).SetUser("from-file"); err != nil {
		t.Fatal(err)
	}
	t.Setenv(KeyUser, "from-env")
	t.Setenv(KeyToken, "env-token")

	creds, err := NewCredentialStore(path).Require()
	if err != nil {
		t.Fatal(err)
	}
	if creds.User != "from-env" || creds.Token != "env-token" {
		t.Errorf("unexpected credentials %+v", creds)
	}
}

func Test_CredentialStore_MemoizesFirstRead(t *testing.T) {
	t.Setenv(KeyUser, "")
	t.Setenv(KeyToken, "")
	path := filepath.Join(t.TempDir(), "config.json")
	store := NewCredentialStore(path)
	if err := store.SetUser("first"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Credentials(); err != nil {
		t.Fatal(err)
	}

	if err := NewCredentialStore(path).SetUser("second"); err != nil {
		t.Fatal(err)
	}
	creds, _ := store.Credentials()
	if creds.User != "first" {
		t.Errorf("expected memoized user 'first', got %q", creds.User)
	}
}
