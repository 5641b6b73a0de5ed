package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("MySecurePassword123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"), hash)

	other, err := HashPassword("MySecurePassword123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salts must differ")
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("MySecurePassword123")
	require.NoError(t, err)

	testCases := []struct {
		name     string
		password string
		hash     string
		want     bool
		wantErr  bool
	}{
		{name: "correct password", password: "MySecurePassword123", hash: hash, want: true},
		{name: "wrong password", password: "WrongPassword456", hash: hash, want: false},
		{name: "invalid hash format", password: "x", hash: "invalid", wantErr: true},
		{name: "wrong algorithm", password: "x", hash: "$bcrypt$v=1$m=65536,t=1,p=4$salt$hash", wantErr: true},
		{name: "broken salt", password: "x", hash: "$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := VerifyPassword(tc.password, tc.hash)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCreateAuthFileAndLoadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.secret")

	require.NoError(t, CreateAuthFile(path, "admin", "secret", false))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0400), info.Mode().Perm())

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "admin", creds.User)
	ok, err := VerifyPassword("secret", creds.Hash)
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("existing file needs overwrite", func(t *testing.T) {
		assert.ErrorIs(t, CreateAuthFile(path, "admin", "other", false), ErrAuthFileExists)
		require.NoError(t, CreateAuthFile(path, "root", "other", true))

		creds, err := LoadCredentials(path)
		require.NoError(t, err)
		assert.Equal(t, "root", creds.User)
	})
}

func TestLoadCredentials(t *testing.T) {
	t.Run("missing file disables auth", func(t *testing.T) {
		creds, err := LoadCredentials(filepath.Join(t.TempDir(), "missing.secret"))
		require.NoError(t, err)
		assert.Nil(t, creds)
	})

	t.Run("invalid format", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "auth.secret")
		require.NoError(t, os.WriteFile(path, []byte("no-separator\n"), 0600))

		_, err := LoadCredentials(path)
		assert.Error(t, err)
	})
}

func TestRequireAuth(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	creds := &Credentials{User: "admin", Hash: hash}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	testCases := []struct {
		name       string
		creds      *Credentials
		setAuth    bool
		user, pass string
		wantStatus int
	}{
		{name: "valid credentials", creds: creds, setAuth: true, user: "admin", pass: "secret", wantStatus: http.StatusNoContent},
		{name: "wrong password", creds: creds, setAuth: true, user: "admin", pass: "nope", wantStatus: http.StatusUnauthorized},
		{name: "wrong user", creds: creds, setAuth: true, user: "root", pass: "secret", wantStatus: http.StatusUnauthorized},
		{name: "no credentials", creds: creds, wantStatus: http.StatusUnauthorized},
		{name: "auth disabled", creds: nil, wantStatus: http.StatusNoContent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/reload", nil)
			if tc.setAuth {
				req.SetBasicAuth(tc.user, tc.pass)
			}
			w := httptest.NewRecorder()

			RequireAuth(tc.creds, next).ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
			}
		})
	}
}
