package extension

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/compozy/conduit/engine/filestore"
	"github.com/compozy/conduit/engine/integration"
	"github.com/compozy/conduit/engine/resources"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newManager(t *testing.T) *resources.Manager {
	t.Helper()
	return resources.NewManager(resources.NewMemoryResourceStore(), filestore.NewMemory())
}

func newService(t *testing.T) (*Service, *resources.Manager) {
	t.Helper()
	m := newManager(t)
	return NewService(m, NewJarAnalyzer(), WithClock(func() time.Time { return fixedNow })), m
}

// buildJar writes a zip archive with the given entries. A definition entry is added when
// def is not nil.
func buildJar(t *testing.T, def map[string]any, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if def != nil {
		raw, err := json.Marshal(def)
		require.NoError(t, err)
		w, err := zw.Create(DefinitionPath)
		require.NoError(t, err)
		_, err = w.Write(raw)
		require.NoError(t, err)
	}
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func definition(extensionID, version string) map[string]any {
	return map[string]any{
		"extensionId": extensionID,
		"name":        "Log Body",
		"description": "Logs the message body",
		"version":     version,
		"actions": []map[string]any{
			{"id": "log-body", "name": "Log body", "actionType": "step"},
		},
		"dependencies": []map[string]any{
			{"type": "MAVEN", "id": "org.slf4j:slf4j-api:1.7.25"},
		},
	}
}

func putInstalled(t *testing.T, m *resources.Manager, id, extensionID, version string) *integration.Extension {
	t.Helper()
	ext := &integration.Extension{
		ID:          id,
		ExtensionID: extensionID,
		Name:        "Installed " + extensionID,
		Version:     version,
		Status:      integration.ExtensionInstalled,
	}
	_, err := m.PutExtension(t.Context(), ext)
	require.NoError(t, err)
	return ext
}
