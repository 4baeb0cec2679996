package generate

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/conduit/cli/cmd"
	"github.com/compozy/conduit/engine/extension"
	"github.com/compozy/conduit/engine/integration"
)

func timerIntegration() integration.Integration {
	timer := integration.ConnectorAction("timer-action", integration.Descriptor{ComponentScheme: "timer"})
	return integration.Integration{
		ID:   "timer-integration",
		Name: "Timer Integration",
		Flows: []integration.Flow{{
			ID: "flow-0",
			Steps: []integration.Step{{
				Kind:                 integration.StepKindEndpoint,
				Action:               &timer,
				ConfiguredProperties: map[string]string{"period": "1000"},
			}},
		}},
	}
}

func extensionIntegration(id string) integration.Integration {
	action := integration.StepAction("log-body", integration.StepActionBean, "com.example.LogBody::log")
	integ := timerIntegration()
	integ.Flows[0].Steps = append(integ.Flows[0].Steps, integration.Step{
		Kind:      integration.StepKindExtension,
		Extension: &integration.Extension{ID: id, ExtensionID: "log-body"},
		Action:    &action,
	})
	return integ
}

func buildJar(t *testing.T, extensionID string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(extension.DefinitionPath)
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"extensionId":"` + extensionID + `","name":"Log Body","version":"1.0.0"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeIntegration(t *testing.T, dir string, integ integration.Integration) string {
	t.Helper()
	data, err := json.Marshal(integ)
	require.NoError(t, err)
	path := filepath.Join(dir, "integration.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := &cobra.Command{
		Use:           "conduit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			return cmd.Setup(c)
		},
	}
	root.PersistentFlags().String("config", "", "")
	root.PersistentFlags().String("log-level", "disabled", "")
	root.AddCommand(NewGenerateCommand())
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"generate", "--log-level", "disabled"}, args...))
	err := root.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func tarNames(t *testing.T, r io.Reader) []string {
	t.Helper()
	var names []string
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return names
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
}

func TestGenerateCommand(t *testing.T) {
	t.Run("Should write the project archive to the output file", func(t *testing.T) {
		dir := t.TempDir()
		input := writeIntegration(t, dir, timerIntegration())
		output := filepath.Join(dir, "out.tar")
		_, stderr, err := execute(t, "-i", input, "-o", output)
		require.NoError(t, err, stderr)
		f, err := os.Open(output)
		require.NoError(t, err)
		defer f.Close()
		names := tarNames(t, f)
		assert.Contains(t, names, "pom.xml")
		assert.Contains(t, names, "src/main/resources/application.properties")
	})

	t.Run("Should stream the archive to stdout", func(t *testing.T) {
		input := writeIntegration(t, t.TempDir(), timerIntegration())
		stdout, stderr, err := execute(t, "-i", input, "-o", "-")
		require.NoError(t, err, stderr)
		assert.Contains(t, tarNames(t, bytes.NewReader([]byte(stdout))), "pom.xml")
	})

	t.Run("Should print the application properties", func(t *testing.T) {
		input := writeIntegration(t, t.TempDir(), timerIntegration())
		stdout, stderr, err := execute(t, "-i", input, "--properties")
		require.NoError(t, err, stderr)
		var props map[string]string
		require.NoError(t, json.Unmarshal([]byte(stdout), &props))
		assert.Equal(t, map[string]string{"flow-0.timer-0.period": "1000"}, props)
	})

	t.Run("Should package extensions given on the command line", func(t *testing.T) {
		dir := t.TempDir()
		jar := filepath.Join(dir, "log-body.jar")
		require.NoError(t, os.WriteFile(jar, buildJar(t, "log-body"), 0o600))
		input := writeIntegration(t, dir, extensionIntegration("ext-1"))
		stdout, stderr, err := execute(t, "-i", input, "-o", "-", "--extension", "ext-1="+jar)
		require.NoError(t, err, stderr)
		assert.Contains(t, tarNames(t, bytes.NewReader([]byte(stdout))), "extensions/log-body.jar")
	})

	t.Run("Should remove the output file when generation fails", func(t *testing.T) {
		dir := t.TempDir()
		input := writeIntegration(t, dir, extensionIntegration("ext-missing"))
		output := filepath.Join(dir, "out.tar")
		_, stderr, err := execute(t, "-i", input, "-o", output)
		require.Error(t, err)
		assert.Contains(t, stderr, `"code"`)
		assert.NoFileExists(t, output)
	})

	t.Run("Should fail on stdout when production stops after streaming began", func(t *testing.T) {
		input := writeIntegration(t, t.TempDir(), extensionIntegration("ext-missing"))
		stdout, stderr, err := execute(t, "-i", input, "-o", "-")
		require.Error(t, err)
		assert.NotEmpty(t, stdout)
		assert.Contains(t, stderr, "log-body")
	})

	t.Run("Should reject malformed extension flags", func(t *testing.T) {
		input := writeIntegration(t, t.TempDir(), timerIntegration())
		_, stderr, err := execute(t, "-i", input, "-o", "-", "--extension", "broken")
		require.Error(t, err)
		assert.Contains(t, stderr, "INVALID_FLAG")
	})

	t.Run("Should require an input file", func(t *testing.T) {
		_, _, err := execute(t)
		assert.ErrorContains(t, err, "input")
	})
}

func TestDefaultOutput(t *testing.T) {
	t.Run("Should slug the integration name", func(t *testing.T) {
		assert.Equal(t, "timer-integration.tar", defaultOutput(timerIntegration()))
		assert.Equal(t, "project.tar", defaultOutput(integration.Integration{}))
	})
}
