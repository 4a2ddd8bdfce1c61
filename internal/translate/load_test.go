package translate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/telhawk-normalize/common/logging"
	"github.com/telhawk-systems/telhawk-normalize/internal/translate"
)

func writeRule(t *testing.T, dir, name, doc string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644))
}

func TestLoadDir(t *testing.T) {
	root := t.TempDir()
	writeRule(t, filepath.Join(root, "infoblox:dhcp"), "01_ack.json",
		`{"when": "message like 'DHCPACK'", "rules": [{"message": {"@move": "msg"}}]}`)
	writeRule(t, filepath.Join(root, "infoblox:dhcp"), "02_nak.json",
		`{"when": "message like 'DHCPNAK'", "rules": [{"message": {"@move": "msg"}}]}`)
	writeRule(t, filepath.Join(root, "wineventlog"), "4624.json",
		`{"rules": [{"EventCode": {"@move": "activity_id"}}]}`)

	registry, err := translate.LoadDir(root, ":", logging.Default())
	require.NoError(t, err)

	assert.Equal(t, 2, registry.Len())

	manager, ok := registry.Get("infoblox:dhcp:7")
	require.True(t, ok, "fuzzy lookup reaches the registration")
	assert.Equal(t, "infoblox:dhcp", manager.Source())
	assert.Equal(t, 2, manager.Len())

	out := manager.Translate(map[string]any{"message": "DHCPNAK via eth0"})
	require.NotNil(t, out)
	assert.Equal(t, "DHCPNAK via eth0", out["msg"])
}

func TestLoadDir_SkipsNonRuleFiles(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "syslog")
	writeRule(t, dir, "rule.json", `{"rules": []}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.json"), []byte("{}"), 0o644))

	registry, err := translate.LoadDir(root, ":", logging.Default())
	require.NoError(t, err)

	manager, ok := registry.Get("syslog")
	require.True(t, ok)
	assert.Equal(t, 1, manager.Len())
}

func TestLoadDir_BadRuleFailsStartup(t *testing.T) {
	root := t.TempDir()
	writeRule(t, filepath.Join(root, "syslog"), "bad.json",
		`{"rules": [{"a": {"@rename": "b"}}]}`)

	_, err := translate.LoadDir(root, ":", logging.Default())
	assert.Error(t, err)
}

func TestLoadDir_MissingRoot(t *testing.T) {
	_, err := translate.LoadDir(filepath.Join(t.TempDir(), "nope"), ":", logging.Default())
	assert.Error(t, err)
}
