package properties

import (
	"errors"
	"testing"

	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/engine/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httpConnector() *integration.Connector {
	return &integration.Connector{
		ID:              "http4",
		ComponentScheme: "http4",
		Properties: map[string]integration.ConfigurationProperty{
			"token":    {Secret: true, ComponentProperty: true},
			"username": {ComponentProperty: true},
			"password": {Secret: true, ComponentProperty: true},
		},
	}
}

func httpIntegration() integration.Integration {
	step := integration.Step{
		Kind: integration.StepKindEndpoint,
		Connection: &integration.Connection{
			ID:                   "c1",
			Connector:            httpConnector(),
			ConfiguredProperties: map[string]string{"username": "connection-user", "password": "s3cret"},
		},
		Action: &integration.Action{
			ID:         "http4-invoke",
			ActionType: integration.ActionTypeConnector,
			Descriptor: integration.Descriptor{
				ComponentScheme:      "http4",
				ConfiguredProperties: map[string]string{"httpUri": "http://example.com"},
			},
		},
		ConfiguredProperties: map[string]string{"token": "tok", "username": "step-user"},
	}
	log := integration.Step{Kind: integration.StepKindLog, ConfiguredProperties: map[string]string{"bodyLoggingEnabled": "true"}}
	return integration.Integration{
		ID:                   "test-integration",
		Name:                 "Test Integration",
		ConfiguredProperties: map[string]string{"integration": "property"},
		Flows:                []integration.Flow{{ID: "flow-0", Steps: []integration.Step{step, log}}},
	}
}

func TestMaterializer_Properties(t *testing.T) {
	t.Run("Should emit prefixed step properties and unprefixed integration properties", func(t *testing.T) {
		props, err := New(Options{}).Properties(httpIntegration())
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"integration":             "property",
			"flow-0.http4-0.token":    "tok",
			"flow-0.http4-0.username": "step-user",
			"flow-0.http4-0.password": "s3cret",
		}, props.Map())
		assert.Equal(t, []string{
			"integration",
			"flow-0.http4-0.password",
			"flow-0.http4-0.token",
			"flow-0.http4-0.username",
		}, props.Keys())
	})

	t.Run("Should keep raw secret values with masking enabled", func(t *testing.T) {
		props, err := New(Options{SecretMasking: true}).Properties(httpIntegration())
		require.NoError(t, err)
		v, ok := props.Get("flow-0.http4-0.password")
		require.True(t, ok)
		assert.Equal(t, "s3cret", v)
		for _, e := range props.Entries() {
			if e.Key == "flow-0.http4-0.password" || e.Key == "flow-0.http4-0.token" {
				assert.True(t, e.Secret, e.Key)
			}
		}
	})

	t.Run("Should fall back to the connector scheme and slug it", func(t *testing.T) {
		integ := httpIntegration()
		integ.Flows[0].Steps[0].Action.Descriptor.ComponentScheme = ""
		integ.Flows[0].Steps[0].Connection.Connector.ComponentScheme = "AHC WS"
		props, err := New(Options{}).Properties(integ)
		require.NoError(t, err)
		_, ok := props.Get("flow-0.ahc-ws-0.token")
		assert.True(t, ok)
	})

	t.Run("Should reject old style connectors naming both scheme sources", func(t *testing.T) {
		integ := httpIntegration()
		integ.Flows[0].Steps[0].Action.Descriptor.ComponentScheme = ""
		integ.Flows[0].Steps[0].Connection.Connector.ComponentScheme = ""
		_, err := New(Options{}).Properties(integ)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrOldStyleConnector)
		assert.Equal(t, core.CodeUnsupportedOperation, core.CodeOf(err))
		assert.Contains(t, err.Error(), "connector.componentScheme")
		assert.Contains(t, err.Error(), "descriptor.componentScheme")
		var ce *core.Error
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "http4", ce.Details["connector"])
	})

	t.Run("Should skip endpoint steps without a connection or scheme", func(t *testing.T) {
		integ := integration.Integration{Flows: []integration.Flow{{Steps: []integration.Step{
			{Kind: integration.StepKindEndpoint, ConfiguredProperties: map[string]string{"a": "b"}},
			{Kind: integration.StepKindTemplate, ConfiguredProperties: map[string]string{"template": "{{body}}"}},
		}}}}
		props, err := New(Options{}).Properties(integ)
		require.NoError(t, err)
		assert.Zero(t, props.Len())
	})
}

func TestMaterializer_MaskSecrets(t *testing.T) {
	t.Run("Should replace secrets with placeholders deterministically", func(t *testing.T) {
		m := New(Options{SecretMasking: true})
		original := httpIntegration()
		first, err := m.MaskSecrets(original)
		require.NoError(t, err)
		second, err := m.MaskSecrets(original)
		require.NoError(t, err)
		assert.Equal(t, first, second)

		step := first.Flows[0].Steps[0]
		assert.Equal(t, "{{flow-0.http4-0.token}}", step.ConfiguredProperties["token"])
		assert.Equal(t, "step-user", step.ConfiguredProperties["username"])
		assert.Equal(t, "{{flow-0.http4-0.password}}", step.Connection.ConfiguredProperties["password"])
		assert.Equal(t, "connection-user", step.Connection.ConfiguredProperties["username"])

		assert.Equal(t, "tok", original.Flows[0].Steps[0].ConfiguredProperties["token"])
		assert.Equal(t, "s3cret", original.Flows[0].Steps[0].Connection.ConfiguredProperties["password"])
	})

	t.Run("Should return an equal copy when masking is disabled", func(t *testing.T) {
		original := httpIntegration()
		out, err := New(Options{}).MaskSecrets(original)
		require.NoError(t, err)
		assert.Equal(t, original, out)
	})
}
