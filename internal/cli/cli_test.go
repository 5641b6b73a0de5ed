package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angularhub/hub/internal/auth"
	"github.com/angularhub/hub/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventsJSON = `[
	{"name": "ng-conf", "date": "2024-05-01", "language": "English", "type": "conference", "location": "Salt Lake City"},
	{"name": "NG Paris", "date": "2024-05-01", "language": "French", "type": "meetup", "isFree": true},
	{"name": "Angular Berlin", "date": "2024-05-02", "language": "German", "type": "meetup", "isRemote": true}
]`

type testEnv struct {
	dir        string
	configPath string
	eventsFile string
	authFile   string
	dbFile     string
}

func setupTestEnv(t *testing.T, sourceKind string) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "application.yaml"),
		eventsFile: filepath.Join(dir, "events.json"),
		authFile:   filepath.Join(dir, "auth.secret"),
		dbFile:     filepath.Join(dir, "hub.db"),
	}
	require.NoError(t, os.WriteFile(env.eventsFile, []byte(eventsJSON), 0600))

	config := fmt.Sprintf(`
log:
  level: warn
source:
  kind: %s
  file: %q
db:
  driver: sqlite
  name: %q
admin:
  authfile: %q
`, sourceKind, env.eventsFile, env.dbFile, env.authFile)
	require.NoError(t, os.WriteFile(env.configPath, []byte(config), 0600))
	return env
}

func run(t *testing.T, env testEnv, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestList_Table(t *testing.T) {
	env := setupTestEnv(t, "file")

	out, err := run(t, env, "", "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[1], "ng-conf")
	assert.Contains(t, lines[2], "NG Paris")
	assert.Contains(t, lines[3], "Angular Berlin")
}

func TestList_JSONWithFilters(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want []string
	}{
		{name: "no filters", args: nil, want: []string{"ng-conf", "NG Paris", "Angular Berlin"}},
		{name: "date", args: []string{"--date", "2024-05-01"}, want: []string{"ng-conf", "NG Paris"}},
		{name: "language", args: []string{"--language", "German"}, want: []string{"Angular Berlin"}},
		{name: "date and language", args: []string{"--date", "2024-05-02", "--language", "French"}, want: []string{}},
		{name: "unknown language", args: []string{"--language", "Klingon"}, want: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupTestEnv(t, "file")

			out, err := run(t, env, "", append([]string{"list", "-o", "json"}, tc.args...)...)
			require.NoError(t, err)

			var records []event.Record
			require.NoError(t, json.Unmarshal([]byte(out), &records))
			names := make([]string, 0, len(records))
			for _, r := range records {
				names = append(names, r.Name)
			}
			assert.Equal(t, tc.want, names)
		})
	}
}

func TestList_ICS(t *testing.T) {
	env := setupTestEnv(t, "file")

	out, err := run(t, env, "", "list", "-o", "ics", "--language", "French")
	require.NoError(t, err)

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "SUMMARY:NG Paris")
}

func TestList_CSV(t *testing.T) {
	env := setupTestEnv(t, "file")

	out, err := run(t, env, "", "list", "-o", "csv", "--date", "2024-05-02")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Date,Name,Language"))
	assert.True(t, strings.HasPrefix(lines[1], "2024-05-02,Angular Berlin,German,meetup"))
}

func TestList_Errors(t *testing.T) {
	env := setupTestEnv(t, "file")

	_, err := run(t, env, "", "list", "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")

	_, err = run(t, env, "", "list", "--date", "May 1st")
	assert.Error(t, err)

	require.NoError(t, os.Remove(env.eventsFile))
	_, err = run(t, env, "", "list")
	assert.Error(t, err)
}

func TestLanguages(t *testing.T) {
	env := setupTestEnv(t, "file")

	out, err := run(t, env, "", "languages")
	require.NoError(t, err)

	assert.Equal(t, "English\nFrench\nGerman\n", out)
}

func TestImport_ThenListFromDatabase(t *testing.T) {
	env := setupTestEnv(t, "file")

	out, err := run(t, env, "", "import")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 events")

	dbEnv := env
	dbEnv.configPath = filepath.Join(env.dir, "db.yaml")
	config, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	config = bytes.Replace(config, []byte("kind: file"), []byte("kind: db"), 1)
	require.NoError(t, os.WriteFile(dbEnv.configPath, config, 0600))

	out, err = run(t, dbEnv, "", "languages")
	require.NoError(t, err)
	assert.Equal(t, "English\nFrench\nGerman\n", out)

	_, err = run(t, dbEnv, "", "import")
	assert.ErrorContains(t, err, "--file")

	other := filepath.Join(env.dir, "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("- name: Angular Roma\n  date: \"2024-06-01\"\n  language: Italian\n"), 0600))
	out, err = run(t, dbEnv, "", "import", "--file", other)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 events")

	out, err = run(t, dbEnv, "", "languages")
	require.NoError(t, err)
	assert.Equal(t, "Italian\n", out)
}

func TestMigrate(t *testing.T) {
	env := setupTestEnv(t, "file")

	out, err := run(t, env, "", "migrate")
	require.NoError(t, err)

	assert.Contains(t, out, "Migrations applied (sqlite)")
	assert.FileExists(t, env.dbFile)
}

func TestHashPassword(t *testing.T) {
	env := setupTestEnv(t, "file")

	out, err := run(t, env, "admin\nsecret\nsecret\n", "hash-password")
	require.NoError(t, err)
	assert.Contains(t, out, "Auth file created")

	creds, err := auth.LoadCredentials(env.authFile)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "admin", creds.User)
	ok, err := auth.VerifyPassword("secret", creds.Hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPassword_Failures(t *testing.T) {
	testCases := []struct {
		name  string
		stdin string
		want  string
	}{
		{name: "empty username", stdin: "\n", want: "username cannot be empty"},
		{name: "mismatch", stdin: "admin\nsecret\nother\n", want: "passwords do not match"},
		{name: "empty password", stdin: "admin\n\n\n", want: "password cannot be empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupTestEnv(t, "file")

			_, err := run(t, env, tc.stdin, "hash-password")

			assert.ErrorContains(t, err, tc.want)
			assert.NoFileExists(t, env.authFile)
		})
	}
}

func TestHashPassword_ExistingFile(t *testing.T) {
	env := setupTestEnv(t, "file")
	_, err := run(t, env, "admin\nsecret\nsecret\n", "hash-password")
	require.NoError(t, err)

	_, err = run(t, env, "other\nnew\nnew\nn\n", "hash-password")
	assert.ErrorContains(t, err, "aborted")

	_, err = run(t, env, "other\nnew\nnew\ny\n", "hash-password")
	require.NoError(t, err)
	creds, err := auth.LoadCredentials(env.authFile)
	require.NoError(t, err)
	assert.Equal(t, "other", creds.User)

	_, err = run(t, env, "third\npass\npass\n", "hash-password", "--overwrite")
	require.NoError(t, err)
	creds, err = auth.LoadCredentials(env.authFile)
	require.NoError(t, err)
	assert.Equal(t, "third", creds.User)
}
