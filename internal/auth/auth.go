package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"
)

var ErrAuthFileExists = errors.New("auth file already exists")

// Argon2id parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// Credentials is the single admin account read from an auth file of the form "username:hash".
type Credentials struct {
	User string
	Hash string
}

// LoadCredentials reads the auth file. A missing file is not an error: it returns nil
// credentials and the admin endpoints stay unprotected.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warnf("No auth file found at %s, admin endpoints are UNPROTECTED. Run 'hub hash-password' to create one.", path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read auth file: %w", err)
	}

	parts := strings.SplitN(strings.TrimSpace(string(data)), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid auth file format (expected: username:hash)")
	}

	log.Infof("Basic Auth enabled for admin endpoints (user: %s)", parts[0])
	return &Credentials{User: parts[0], Hash: parts[1]}, nil
}

// HashPassword returns an encoded Argon2id hash: $argon2id$v=19$m=65536,t=1,p=4$salt$hash
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return false, fmt.Errorf("not an argon2id hash")
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, fmt.Errorf("failed to parse hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("failed to decode hash: %w", err)
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(expected, computed) == 1, nil
}

// RequireAuth enforces Basic Auth against creds. With nil creds requests pass through.
func RequireAuth(creds *Credentials, next http.Handler) http.Handler {
	if creds == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(creds.User)) == 1

		passMatch := false
		if ok && userMatch {
			var err error
			passMatch, err = VerifyPassword(pass, creds.Hash)
			if err != nil {
				log.Errorf("Error verifying password: %v", err)
			}
		}

		if !ok || !userMatch || !passMatch {
			log.Warnf("Failed auth attempt from %s (user: %s)", r.RemoteAddr, user)
			w.Header().Set("WWW-Authenticate", `Basic realm="hub admin"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateAuthFile writes "username:hash" to path with mode 0400. An existing file is
// replaced only when overwrite is set; otherwise ErrAuthFileExists is returned.
func CreateAuthFile(path, username, password string, overwrite bool) error {
	if username == "" || password == "" {
		return fmt.Errorf("username and password must not be empty")
	}
	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrAuthFileExists, path)
		}
		// the file is read-only, it has to go first
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove existing auth file: %w", err)
		}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	content := fmt.Sprintf("%s:%s\n", username, hash)
	if err := os.WriteFile(path, []byte(content), 0400); err != nil {
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	return nil
}
