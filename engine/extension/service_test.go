package extension

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/engine/integration"
	"github.com/compozy/conduit/engine/resources"
)

func TestService_Upload(t *testing.T) {
	t.Run("Should store a draft with its binary", func(t *testing.T) {
		service, m := newService(t)
		jar := buildJar(t, definition("io.example:log-body", "1.0.0"), nil)
		ext, err := service.Upload(t.Context(), UploadInput{File: bytes.NewReader(jar), UserID: "developer"})
		require.NoError(t, err)
		assert.NotEmpty(t, ext.ID)
		assert.Equal(t, integration.ExtensionDraft, ext.Status)
		assert.Equal(t, "developer", ext.UserID)
		assert.Equal(t, fixedNow, ext.CreatedAt)
		assert.Equal(t, fixedNow, ext.LastUpdated)
		assert.True(t, strings.HasPrefix(ext.Icon, "data:image/svg+xml;base64,"))

		stored, err := m.LoadExtension(t.Context(), ext.ID)
		require.NoError(t, err)
		assert.Equal(t, ext.ExtensionID, stored.ExtensionID)
		rc, _, err := m.LoadExtensionBinary(t.Context(), ext.ID)
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, jar, data)
	})

	t.Run("Should keep a bundled icon reference", func(t *testing.T) {
		service, _ := newService(t)
		def := definition("io.example:log-body", "1.0.0")
		def["icon"] = "extension:icons/log.svg"
		ext, err := service.Upload(t.Context(), UploadInput{File: bytes.NewReader(buildJar(t, def, nil))})
		require.NoError(t, err)
		assert.Equal(t, "extension:icons/log.svg", ext.Icon)
	})

	t.Run("Should fail without a file", func(t *testing.T) {
		service, _ := newService(t)
		_, err := service.Upload(t.Context(), UploadInput{})
		assert.ErrorIs(t, err, ErrMissingFile)
		assert.Equal(t, core.CodeInvalidInput, core.CodeOf(err))
	})

	t.Run("Should reject an invalid file and drop its binary", func(t *testing.T) {
		service, m := newService(t)
		_, err := service.Upload(t.Context(), UploadInput{File: strings.NewReader("not a jar")})
		require.Error(t, err)
		assert.Equal(t, core.CodeInvalidInput, core.CodeOf(err))
		assert.Contains(t, err.Error(), "Please, check the input file.")
		assert.ErrorIs(t, err, ErrNotArchive)
		exts, err := m.ListExtensions(t.Context())
		require.NoError(t, err)
		assert.Empty(t, exts)
	})

	t.Run("Should refuse a new upload of an installed extension", func(t *testing.T) {
		service, _ := newService(t)
		putInstalled(t, service.resources, "installed-1", "io.example:log-body", "1.0.0")
		jar := buildJar(t, definition("io.example:log-body", "1.1.0"), nil)
		_, err := service.Upload(t.Context(), UploadInput{File: bytes.NewReader(jar)})
		require.Error(t, err)
		assert.Equal(t, core.CodeInvalidInput, core.CodeOf(err))
		assert.Contains(t, err.Error(), "is already installed")
	})

	t.Run("Should accept an update of an installed extension", func(t *testing.T) {
		service, _ := newService(t)
		putInstalled(t, service.resources, "installed-1", "io.example:log-body", "1.0.0")
		jar := buildJar(t, definition("io.example:log-body", "1.1.0"), nil)
		ext, err := service.Upload(t.Context(), UploadInput{File: bytes.NewReader(jar), UpdatedID: "installed-1"})
		require.NoError(t, err)
		assert.Equal(t, "1.1.0", ext.Version)
	})

	t.Run("Should refuse an update with another extension id", func(t *testing.T) {
		service, _ := newService(t)
		putInstalled(t, service.resources, "installed-1", "io.example:other", "1.0.0")
		jar := buildJar(t, definition("io.example:log-body", "1.1.0"), nil)
		_, err := service.Upload(t.Context(), UploadInput{File: bytes.NewReader(jar), UpdatedID: "installed-1"})
		require.Error(t, err)
		assert.Equal(
			t,
			"The uploaded extensionId (io.example:log-body) does not match the existing extensionId (io.example:other)",
			err.Error(),
		)
	})
}

func TestService_Install(t *testing.T) {
	t.Run("Should install a draft and retire the previous record", func(t *testing.T) {
		service, m := newService(t)
		putInstalled(t, m, "old", "io.example:log-body", "1.0.0")
		jar := buildJar(t, definition("io.example:log-body", "1.1.0"), nil)
		draft, err := service.Upload(t.Context(), UploadInput{File: bytes.NewReader(jar), UpdatedID: "old"})
		require.NoError(t, err)

		ext, warnings, err := service.Install(t.Context(), draft.ID)
		require.NoError(t, err)
		assert.Equal(t, integration.ExtensionInstalled, ext.Status)
		require.Len(t, warnings, 1)
		assert.Equal(t, violationDuplicate, warnings[0].Error)

		old, err := m.LoadExtension(t.Context(), "old")
		require.NoError(t, err)
		assert.Equal(t, integration.ExtensionDeleted, old.Status)
		installed, err := m.FindInstalledExtension(t.Context(), "io.example:log-body")
		require.NoError(t, err)
		assert.Equal(t, draft.ID, installed.ID)
	})

	t.Run("Should fail on an unknown id", func(t *testing.T) {
		service, _ := newService(t)
		_, _, err := service.Install(t.Context(), "missing")
		assert.ErrorIs(t, err, resources.ErrNotFound)
	})

	t.Run("Should not install an extension with blocking violations", func(t *testing.T) {
		service, m := newService(t)
		_, err := m.PutExtension(t.Context(), &integration.Extension{ID: "broken", Status: integration.ExtensionDraft})
		require.NoError(t, err)
		_, _, err = service.Install(t.Context(), "broken")
		assert.ErrorIs(t, err, ErrValidation)
		stored, err := m.LoadExtension(t.Context(), "broken")
		require.NoError(t, err)
		assert.Equal(t, integration.ExtensionDraft, stored.Status)
	})
}

func TestService_Delete(t *testing.T) {
	t.Run("Should mark the extension deleted and keep the binary", func(t *testing.T) {
		service, m := newService(t)
		putInstalled(t, m, "ext-1", "io.example:log-body", "1.0.0")
		require.NoError(t, m.StoreExtensionBinary(t.Context(), "ext-1", strings.NewReader("jar")))
		require.NoError(t, service.Delete(t.Context(), "ext-1"))
		ext, err := m.LoadExtension(t.Context(), "ext-1")
		require.NoError(t, err)
		assert.Equal(t, integration.ExtensionDeleted, ext.Status)
		assert.Equal(t, fixedNow, ext.LastUpdated)
		rc, _, err := m.LoadExtensionBinary(t.Context(), "ext-1")
		require.NoError(t, err)
		rc.Close()
	})

	t.Run("Should fail on an unknown id", func(t *testing.T) {
		service, _ := newService(t)
		err := service.Delete(t.Context(), "missing")
		assert.Equal(t, core.CodeNotFound, core.CodeOf(err))
	})
}

func TestService_Integrations(t *testing.T) {
	extensionStep := func(extensionID string) integration.Step {
		return integration.Step{
			Kind:      integration.StepKindExtension,
			Extension: &integration.Extension{ExtensionID: extensionID},
		}
	}
	deployment := func(id, integrationID string, state integration.DeploymentState, steps ...integration.Step) *integration.Deployment {
		return &integration.Deployment{
			ID:            id,
			IntegrationID: integrationID,
			TargetState:   state,
			Spec: integration.Integration{
				ID:    integrationID,
				Name:  "Integration " + integrationID,
				Flows: []integration.Flow{{ID: "flow", Steps: steps}},
			},
		}
	}

	t.Run("Should list published integrations that use the extension", func(t *testing.T) {
		service, m := newService(t)
		putInstalled(t, m, "ext-1", "io.example:log-body", "1.0.0")
		for _, d := range []*integration.Deployment{
			deployment("d1", "int-b", integration.DeploymentPublished, extensionStep("io.example:log-body")),
			deployment("d2", "int-a", integration.DeploymentPublished, extensionStep("io.example:log-body")),
			deployment("d3", "int-c", integration.DeploymentUnpublished, extensionStep("io.example:log-body")),
			deployment("d4", "int-d", integration.DeploymentPublished, extensionStep("io.example:other")),
			deployment("d5", "int-e", integration.DeploymentPublished, extensionStep("io.example:log-body")),
			deployment("d6", "int-a", integration.DeploymentPublished, extensionStep("io.example:log-body")),
		} {
			_, err := m.PutDeployment(t.Context(), d)
			require.NoError(t, err)
		}
		_, err := m.PutIntegration(t.Context(), integration.Integration{ID: "int-e", Name: "gone", Deleted: true})
		require.NoError(t, err)

		refs, err := service.Integrations(t.Context(), "ext-1")
		require.NoError(t, err)
		assert.Equal(t, []integration.ResourceIdentifier{
			{Kind: integration.ResourceKindIntegration, ID: "int-a", Name: "Integration int-a"},
			{Kind: integration.ResourceKindIntegration, ID: "int-b", Name: "Integration int-b"},
		}, refs)
	})

	t.Run("Should return nothing when no deployment uses it", func(t *testing.T) {
		service, m := newService(t)
		putInstalled(t, m, "ext-1", "io.example:log-body", "1.0.0")
		refs, err := service.Integrations(t.Context(), "ext-1")
		require.NoError(t, err)
		assert.Empty(t, refs)
	})
}

func TestService_Icon(t *testing.T) {
	t.Run("Should read a bundled icon", func(t *testing.T) {
		service, _ := newService(t)
		def := definition("io.example:log-body", "1.0.0")
		def["icon"] = "extension:icons/log.svg"
		jar := buildJar(t, def, map[string][]byte{"icons/log.svg": []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`)})
		ext, err := service.Upload(t.Context(), UploadInput{File: bytes.NewReader(jar)})
		require.NoError(t, err)

		icon, media, err := service.Icon(t.Context(), ext.ID)
		require.NoError(t, err)
		assert.Equal(t, "image/svg+xml", media)
		assert.Contains(t, string(icon), "<svg")
	})

	t.Run("Should report generated icons as not found", func(t *testing.T) {
		service, _ := newService(t)
		jar := buildJar(t, definition("io.example:log-body", "1.0.0"), nil)
		ext, err := service.Upload(t.Context(), UploadInput{File: bytes.NewReader(jar)})
		require.NoError(t, err)
		_, _, err = service.Icon(t.Context(), ext.ID)
		assert.ErrorIs(t, err, ErrIconNotFound)
		assert.Equal(t, core.CodeNotFound, core.CodeOf(err))
	})

	t.Run("Should report a missing icon entry", func(t *testing.T) {
		service, _ := newService(t)
		def := definition("io.example:log-body", "1.0.0")
		def["icon"] = "extension:icons/missing.png"
		ext, err := service.Upload(t.Context(), UploadInput{File: bytes.NewReader(buildJar(t, def, nil))})
		require.NoError(t, err)
		_, _, err = service.Icon(t.Context(), ext.ID)
		assert.ErrorIs(t, err, ErrIconNotFound)
	})
}

func TestGenerateIcon(t *testing.T) {
	t.Run("Should be stable for a name", func(t *testing.T) {
		assert.Equal(t, GenerateIcon("Log Body"), GenerateIcon("Log Body"))
		assert.NotEqual(t, GenerateIcon("Log Body"), GenerateIcon("Mail"))
		assert.True(t, strings.HasPrefix(GenerateIcon(""), "data:image/svg+xml;base64,"))
	})
}
