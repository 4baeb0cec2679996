package tplengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasTemplate(t *testing.T) {
	t.Run("Should detect template markers", func(t *testing.T) {
		assert.False(t, HasTemplate(""))
		assert.False(t, HasTemplate("Hello {not tmpl}"))
		assert.True(t, HasTemplate("Hello {{ .Name }}"))
		assert.True(t, HasTemplate("Hello {{- .Name -}}"))
	})
}

func TestTemplateEngine_Render(t *testing.T) {
	t.Run("Should render a registered template with sprig functions", func(t *testing.T) {
		e := NewEngine(FormatText)
		require.NoError(t, e.AddTemplate("hello", `Hello {{ .Name | upper }}`))
		out, err := e.Render("hello", map[string]any{"Name": "world"})
		require.NoError(t, err)
		assert.Equal(t, "Hello WORLD", out)
	})

	t.Run("Should render struct data", func(t *testing.T) {
		e := NewEngine(FormatText)
		out, err := e.RenderString(`{{ .ID }}-{{ len .Items }}`, struct {
			ID    string
			Items []int
		}{ID: "x", Items: []int{1, 2}})
		require.NoError(t, err)
		assert.Equal(t, "x-2", out)
	})

	t.Run("Should fail on missing keys", func(t *testing.T) {
		e := NewEngine(FormatText)
		_, err := e.RenderString(`{{ .missing }}`, map[string]any{})
		assert.Error(t, err)
	})

	t.Run("Should fail for unknown template names", func(t *testing.T) {
		_, err := NewEngine(FormatText).Render("nope", nil)
		assert.ErrorContains(t, err, "template not found")
	})

	t.Run("Should return plain strings untouched", func(t *testing.T) {
		out, err := NewEngine(FormatText).RenderString("no templates here", nil)
		require.NoError(t, err)
		assert.Equal(t, "no templates here", out)
	})
}

func TestTemplateEngine_ProcessString(t *testing.T) {
	t.Run("Should parse YAML output", func(t *testing.T) {
		res, err := NewEngine(FormatYAML).ProcessString("name: {{ .Name }}\n", map[string]any{"Name": "x"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "x"}, res.YAML)
	})

	t.Run("Should reject malformed JSON output", func(t *testing.T) {
		_, err := NewEngine(FormatJSON).ProcessString(`{"a": {{ .A }}`, map[string]any{"A": 1})
		assert.ErrorContains(t, err, "failed to parse JSON")
	})
}

func TestFormatFromName(t *testing.T) {
	t.Run("Should ignore the tmpl suffix", func(t *testing.T) {
		assert.Equal(t, FormatXML, FormatFromName("pom.xml.tmpl"))
		assert.Equal(t, FormatYAML, FormatFromName("deployment.yml"))
		assert.Equal(t, FormatJSON, FormatFromName("integration.json"))
		assert.Equal(t, FormatText, FormatFromName("assemble.tmpl"))
	})
}

func TestFuncs(t *testing.T) {
	t.Run("Should escape xml text", func(t *testing.T) {
		assert.Equal(t, "a &lt;b&gt; &amp; c", XMLEscape("a <b> & c"))
	})

	t.Run("Should escape properties keys and values", func(t *testing.T) {
		assert.Equal(t, `a\=b\:c\ d`, PropertiesKey("a=b:c d"))
		assert.Equal(t, `http://host/a\\b`, PropertiesValue(`http://host/a\b`))
		assert.Equal(t, `line1\nline2`, PropertiesValue("line1\nline2"))
		assert.Equal(t, `\ lead`, PropertiesValue(" lead"))
	})

	t.Run("Should build java identifiers", func(t *testing.T) {
		assert.Equal(t, "getPetById", JavaIdentifier("get-pet-by-id"))
		assert.Equal(t, "_1route", JavaIdentifier("1route"))
		assert.Equal(t, "listPets", JavaIdentifier("ListPets"))
		assert.Equal(t, "_", JavaIdentifier("--"))
	})

	t.Run("Should quote java string literals with java escapes only", func(t *testing.T) {
		assert.Equal(t, `"a\"b"`, JavaString(`a"b`))
		assert.Equal(t, `"c:\\dir\ttab\nline"`, JavaString("c:\\dir\ttab\nline"))
		assert.Equal(t, `"bell\u0007 vtab\u000b"`, JavaString("bell\a vtab\v"))
		assert.Equal(t, `"bad\ufffd"`, JavaString("bad\xff"))
		assert.Equal(t, "\"café \U0001F600\"", JavaString("café \U0001F600"))
		assert.Equal(t, `"tag\udb40\udc01"`, JavaString("tag\U000E0001"))
		assert.Equal(t, `"sep\u2028"`, JavaString("sep\u2028"))
	})
}
