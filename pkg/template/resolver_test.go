package template

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	t.Run("Should resolve the default set without an override", func(t *testing.T) {
		r, err := NewResolver("")
		require.NoError(t, err)
		res, err := r.Resolve("pom.xml")
		require.NoError(t, err)
		assert.Equal(t, "default/pom.xml.tmpl", res.Path)
		assert.True(t, res.IsTemplate())
		assert.False(t, res.Override)
		assert.NotEmpty(t, res.Content)
	})

	t.Run("Should prefer override resources per resource", func(t *testing.T) {
		r, err := NewResolver("redhat")
		require.NoError(t, err)

		pom, err := r.Resolve("pom.xml")
		require.NoError(t, err)
		assert.Equal(t, "redhat/pom.xml.tmpl", pom.Path)
		assert.True(t, pom.Override)
		assert.Contains(t, string(pom.Content), "fabric8-maven-plugin")

		props, err := r.Resolve("application.properties")
		require.NoError(t, err)
		assert.Equal(t, "default/application.properties.tmpl", props.Path)
		assert.False(t, props.Override)
	})

	t.Run("Should fall back to defaults for an unknown override set", func(t *testing.T) {
		r, err := NewResolver("does-not-exist")
		require.NoError(t, err)
		res, err := r.Resolve("settings.xml")
		require.NoError(t, err)
		assert.Equal(t, "default/settings.xml.tmpl", res.Path)
	})

	t.Run("Should return ErrResourceNotFound when missing everywhere", func(t *testing.T) {
		r, err := NewResolver("redhat")
		require.NoError(t, err)
		_, err = r.Resolve("file-that-does-not-exist.yml")
		assert.ErrorIs(t, err, ErrResourceNotFound)
	})

	t.Run("Should read an on-disk layer before built-in resources", func(t *testing.T) {
		layer := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(layer, "custom/pom.xml.tmpl", []byte("<custom/>"), 0o644))
		require.NoError(t, afero.WriteFile(layer, "default/assemble", []byte("#!/bin/sh\n"), 0o644))
		r, err := NewResolver("custom", WithLayer(layer))
		require.NoError(t, err)

		pom, err := r.Resolve("pom.xml")
		require.NoError(t, err)
		assert.Equal(t, "<custom/>", string(pom.Content))

		// a rendered variant wins over a static file in the same set
		assemble, err := r.Resolve("assemble")
		require.NoError(t, err)
		assert.Equal(t, "default/assemble.tmpl", assemble.Path)

		props, err := r.Resolve("application.properties")
		require.NoError(t, err)
		assert.False(t, props.Override)
	})

	t.Run("Should refuse to escape the resource space", func(t *testing.T) {
		r, err := NewResolver("../../etc")
		require.NoError(t, err)
		assert.Equal(t, "etc", r.OverridePath())
		res, err := r.Resolve("../../pom.xml")
		require.NoError(t, err)
		assert.Equal(t, "default/pom.xml.tmpl", res.Path)
	})
}

func TestResolver_Expand(t *testing.T) {
	t.Run("Should place a named resource at its destination", func(t *testing.T) {
		r, err := NewResolver("redhat")
		require.NoError(t, err)
		placements, err := r.Expand("deployment.yml", "src/main/fabric8/deployment.yml")
		require.NoError(t, err)
		require.Len(t, placements, 1)
		assert.Equal(t, "src/main/fabric8/deployment.yml", placements[0].Destination)
		assert.Equal(t, "redhat/deployment.yml.tmpl", placements[0].Resource.Path)
	})

	t.Run("Should join directory destinations with the resource name", func(t *testing.T) {
		r, err := NewResolver("redhat")
		require.NoError(t, err)
		placements, err := r.Expand("deployment.yml", "src/main/fabric8/")
		require.NoError(t, err)
		assert.Equal(t, "src/main/fabric8/deployment.yml", placements[0].Destination)
	})

	t.Run("Should fail for a missing source", func(t *testing.T) {
		r, err := NewResolver("")
		require.NoError(t, err)
		_, err = r.Expand("file-that-does-not-exist.yml", "deployment.yml")
		assert.ErrorIs(t, err, ErrResourceNotFound)
	})

	t.Run("Should expand glob sources from the first matching set", func(t *testing.T) {
		layer := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(layer, "ops/k8s/service.yml", []byte("kind: Service\n"), 0o644))
		require.NoError(t, afero.WriteFile(layer, "ops/k8s/route.yml.tmpl", []byte("kind: Route\n"), 0o644))
		require.NoError(t, afero.WriteFile(layer, "ops/readme.md", []byte("x"), 0o644))
		r, err := NewResolver("ops", WithLayer(layer))
		require.NoError(t, err)

		placements, err := r.Expand("k8s/*.yml", "src/main/kubernetes")
		require.NoError(t, err)
		require.Len(t, placements, 2)
		assert.Equal(t, "src/main/kubernetes/k8s/route.yml", placements[0].Destination)
		assert.True(t, placements[0].Resource.IsTemplate())
		assert.Equal(t, "src/main/kubernetes/k8s/service.yml", placements[1].Destination)
		assert.False(t, placements[1].Resource.IsTemplate())
	})

	t.Run("Should fail when a glob matches nothing", func(t *testing.T) {
		r, err := NewResolver("")
		require.NoError(t, err)
		_, err = r.Expand("**/*.nothing", "out")
		assert.ErrorIs(t, err, ErrResourceNotFound)
	})
}

func TestResolver_Sets(t *testing.T) {
	t.Run("Should list the built-in sets", func(t *testing.T) {
		r, err := NewResolver("")
		require.NoError(t, err)
		sets, err := r.Sets()
		require.NoError(t, err)
		assert.Equal(t, []string{"default", "redhat"}, sets)
	})
}
