package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTest(mode OutputMode, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, mode), out, errOut
}

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"", ModeAuto},
		{"TEXT", ModeText},
		{"md", ModeMarkdown},
		{"json", ModeJSON},
		{"yml", ModeYAML},
		{"bogus", ModeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.in))
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	r, _, _ := newTest(ModeAuto, true)
	assert.Equal(t, ModeText, r.EffectiveMode())

	r, _, _ = newTest(ModeAuto, false)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())

	r, _, _ = newTest(ModeJSON, true)
	assert.Equal(t, ModeJSON, r.EffectiveMode())
	assert.True(t, r.EffectiveMode().Structured())
}

func TestRenderer_Markdown(t *testing.T) {
	r, out, _ := newTest(ModeMarkdown, false)

	r.Header(1, "Templates")
	r.KeyValue("Count", "5")
	r.Table([]string{"Name", "Score"}, [][]string{{"ecommerce-sales", "12"}})

	s := out.String()
	assert.Contains(t, s, "# Templates")
	assert.Contains(t, s, "- **Count**: 5")
	assert.Contains(t, s, "| Name | Score |")
	assert.Contains(t, s, "| ecommerce-sales | 12 |")
	assert.NotContains(t, s, "\x1b[")
}

func TestRenderer_Text(t *testing.T) {
	r, out, errOut := newTest(ModeText, false)

	r.Table([]string{"Name"}, [][]string{{"stripe-revenue"}})
	r.StatusLine("saved", "success", "id-1")
	r.Warning("careful")

	assert.Contains(t, out.String(), "stripe-revenue")
	assert.Contains(t, out.String(), "┌")
	assert.Contains(t, out.String(), "✓ saved  id-1")
	assert.Contains(t, errOut.String(), "careful")
}

func TestRenderer_Structured(t *testing.T) {
	type payload struct {
		CanvasItems []string `json:"canvasItems"`
	}

	r, out, _ := newTest(ModeYAML, false)
	ok, err := r.Structured(payload{CanvasItems: []string{"a"}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "canvasItems:")

	r, out, _ = newTest(ModeJSON, false)
	ok, err = r.Structured(payload{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), `"canvasItems": null`)

	r, _, _ = newTest(ModeText, true)
	ok, err = r.Structured(payload{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## A", FormatHeader(2, "A"))
	assert.Equal(t, "###### A", FormatHeader(9, "A"))
	assert.Equal(t, "```json\n{}\n```", FormatCodeBlock("json", "{}\n"))
}

func TestRenderer_NoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR", "")
	r, _, _ := newTest(ModeText, true)
	assert.True(t, r.Styles().Title.GetBold())

	t.Setenv("NO_COLOR", "1")
	r, _, _ = newTest(ModeText, true)
	assert.False(t, r.Styles().Title.GetBold())
}
