package inventory_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eniac111/fleetctl/internal/inventory"
	"github.com/eniac111/fleetctl/internal/types"
)

const tomlInventory = `
[[hosts]]
id = "localhost"
address = "localhost:22"
tags = ["local", "web"]
vars = { msg = "hi", nested = { port = 8080 } }

[[hosts]]
id = "db-1"
address = "10.0.0.2:22"
user = "postgres"
tags = ["db"]

[[hosts]]
id = "localhost"
address = "127.0.0.1:2222"
tags = ["local"]
`

const jsonInventory = `{"hosts": [
  {"id": "web-1", "address": "10.0.0.1:22", "tags": ["web", "prod"], "vars": {"msg": "hello"}},
  {"id": "web-2", "address": "10.0.0.3:22", "tags": ["web"]},
  {"id": "db-1", "address": "10.0.0.2:22", "tags": ["db", "prod"]}
]}`

const yamlInventory = `
hosts:
  - id: web-1
    address: 10.0.0.1:22
    tags: [web]
    vars:
      msg: hello
  - id: db-1
    address: 10.0.0.2:22
`

func TestFromTOML_Defaults(t *testing.T) {
	inv, err := inventory.FromTOML([]byte(tomlInventory))
	require.NoError(t, err)
	require.Len(t, inv.Hosts, 3)

	first := inv.Hosts[0]
	assert.Equal(t, "localhost", first.ID.String())
	assert.Equal(t, types.DefaultUser, first.User)
	assert.Equal(t, []string{"local", "web"}, first.TagStrings())
	assert.Equal(t, "hi", first.Vars["msg"])

	assert.Equal(t, "postgres", inv.Hosts[1].User)
	assert.Empty(t, inv.Hosts[1].Vars)
	assert.NotNil(t, inv.Hosts[1].Vars)
}

func TestFromJSON_And_YAML(t *testing.T) {
	inv, err := inventory.FromJSON([]byte(jsonInventory))
	require.NoError(t, err)
	require.Len(t, inv.Hosts, 3)
	assert.Equal(t, "hello", inv.Hosts[0].Vars["msg"])

	inv, err = inventory.FromYAML([]byte(yamlInventory))
	require.NoError(t, err)
	require.Len(t, inv.Hosts, 2)
	assert.Equal(t, "web-1", inv.Hosts[0].ID.String())
	assert.Equal(t, types.DefaultUser, inv.Hosts[1].User)
	assert.Empty(t, inv.Hosts[1].Tags)
}

func TestEmptyDocuments(t *testing.T) {
	for name, load := range map[string]func([]byte) (*inventory.Inventory, error){
		"toml": inventory.FromTOML,
		"json": inventory.FromJSON,
		"yaml": inventory.FromYAML,
	} {
		t.Run(name, func(t *testing.T) {
			doc := ""
			if name == "json" {
				doc = "{}"
			}
			inv, err := load([]byte(doc))
			require.NoError(t, err)
			assert.NotNil(t, inv.Hosts)
			assert.Empty(t, inv.Hosts)
		})
	}
}

func TestInvalidDocumentsRejectedAtLoad(t *testing.T) {
	_, err := inventory.FromJSON([]byte(`{"hosts":[{"id":"bad id","address":"x:22"}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidHostID))

	_, err = inventory.FromJSON([]byte(`{"hosts":[{"id":"ok","address":"x:22","tags":["a&b"]}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidHostTag))

	_, err = inventory.FromTOML([]byte("[[hosts]]\nid = \"-bad\"\naddress = \"x:22\"\n"))
	require.Error(t, err)

	_, err = inventory.FromYAML([]byte("hosts:\n  - id: ok\n    address: x:22\n    tags: [\"a b\"]\n"))
	require.Error(t, err)
}

func TestGetHostByID_FirstMatchWins(t *testing.T) {
	inv, err := inventory.FromTOML([]byte(tomlInventory))
	require.NoError(t, err)

	h, ok := inv.GetHostByID(types.MustHostID("localhost"))
	require.True(t, ok)
	assert.Equal(t, "localhost:22", h.Address)

	_, ok = inv.GetHostByID(types.MustHostID("nope"))
	assert.False(t, ok)
}

func TestGetHostsByTagQuery(t *testing.T) {
	inv, err := inventory.FromJSON([]byte(jsonInventory))
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{"web", []string{"web-1", "web-2"}},
		{"prod", []string{"web-1", "db-1"}},
		{"web & !prod", []string{"web-2"}},
		{"db | web", []string{"web-1", "web-2", "db-1"}},
		{"cache", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			hosts, err := inv.GetHostsByTagQuery(tt.query)
			require.NoError(t, err)
			var ids []string
			for _, h := range hosts {
				ids = append(ids, h.ID.String())
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err = inv.GetHostsByTagQuery("web & (prod")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidToken))
}

func TestAddRemoveHost(t *testing.T) {
	inv := inventory.New()
	inv.AddHost(*types.NewHost(types.MustHostID("a"), "a:22")).
		AddHost(types.Host{ID: types.MustHostID("b"), Address: "b:22"}).
		AddHost(*types.NewHost(types.MustHostID("a"), "a2:22"))
	require.Len(t, inv.Hosts, 3)
	assert.Equal(t, types.DefaultUser, inv.Hosts[1].User)

	inv.RemoveHost(types.MustHostID("a"))
	require.Len(t, inv.Hosts, 1)
	assert.Equal(t, "b", inv.Hosts[0].ID.String())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("toml by default", func(t *testing.T) {
		path := filepath.Join(dir, "inventory")
		require.NoError(t, os.WriteFile(path, []byte(tomlInventory), 0o644))
		inv, err := inventory.Load(path)
		require.NoError(t, err)
		assert.Len(t, inv.Hosts, 3)
	})

	t.Run("json by extension", func(t *testing.T) {
		path := filepath.Join(dir, "inventory.json")
		require.NoError(t, os.WriteFile(path, []byte(jsonInventory), 0o644))
		inv, err := inventory.Load(path)
		require.NoError(t, err)
		assert.Len(t, inv.Hosts, 3)
	})

	t.Run("yaml by extension", func(t *testing.T) {
		path := filepath.Join(dir, "inventory.yml")
		require.NoError(t, os.WriteFile(path, []byte(yamlInventory), 0o644))
		inv, err := inventory.Load(path)
		require.NoError(t, err)
		assert.Len(t, inv.Hosts, 2)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := inventory.Load(filepath.Join(dir, "missing.toml"))
		assert.True(t, errors.Is(err, types.ErrFileNotFound))
	})

	t.Run("directory", func(t *testing.T) {
		_, err := inventory.Load(dir)
		assert.True(t, errors.Is(err, types.ErrIsADirectory))
	})
}

func TestLoad_Executable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	dir := t.TempDir()

	ok := filepath.Join(dir, "inventory.sh")
	script := "#!/bin/sh\ncat <<'EOF'\n" + jsonInventory + "\nEOF\n"
	require.NoError(t, os.WriteFile(ok, []byte(script), 0o755))
	inv, err := inventory.Load(ok)
	require.NoError(t, err)
	assert.Len(t, inv.Hosts, 3)

	failing := filepath.Join(dir, "failing.sh")
	require.NoError(t, os.WriteFile(failing, []byte("#!/bin/sh\necho boom >&2\nexit 3\n"), 0o755))
	_, err = inventory.Load(failing)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrCommandExecutionFailed))
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "boom")
}
