package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wutienyang/ChatGPT-Line-Bot/internal/prompt"
)

func newRouter(t *testing.T, strict bool) (*Router, *prompt.Catalog) {
	t.Helper()
	c, err := prompt.NewCatalog(prompt.Defaults(), prompt.TranslateKey)
	require.NoError(t, err)
	return NewRouter(c, strict), c
}

func TestRoute_ShowPrompt(t *testing.T) {
	r, c := newRouter(t, true)
	before := c.Active()

	for _, in := range []string{"/prompt", "  /prompt  ", "\t/prompt\n"} {
		cmd := r.Route("U1", in)
		assert.Equal(t, ShowPrompt, cmd.Kind, "input %q", in)
		assert.True(t, cmd.Notifies())
	}
	assert.Equal(t, before, c.Active())
}

func TestRoute_ShowAll(t *testing.T) {
	r, _ := newRouter(t, true)

	cmd := r.Route("U1", " /all")
	assert.Equal(t, ShowAll, cmd.Kind)
	assert.True(t, cmd.Notifies())
}

func TestRoute_NoCaseNormalisation(t *testing.T) {
	r, _ := newRouter(t, true)

	cmd := r.Route("U1", "/PROMPT")
	assert.Equal(t, Chat, cmd.Kind)
	assert.Equal(t, "/PROMPT", cmd.Text)
}

func TestRoute_SelectPreset(t *testing.T) {
	r, c := newRouter(t, true)

	cmd := r.Route("U1", " /2 ")
	assert.Equal(t, Command{Kind: SelectPreset, Key: "/2"}, cmd)
	assert.Equal(t, prompt.Defaults()["/2"], c.Active())
	assert.True(t, cmd.Notifies())
}

func TestRoute_SetCustom(t *testing.T) {
	r, c := newRouter(t, true)

	cmd := r.Route("U1", "/set Be terse.")
	assert.Equal(t, Command{Kind: SetCustom, Text: "Be terse."}, cmd)
	assert.Equal(t, "Be terse.", c.Active())

	cmd = r.Route("U1", "/set    Reply in Japanese.   ")
	assert.Equal(t, "Reply in Japanese.", cmd.Text)
	assert.Equal(t, "Reply in Japanese.", c.Active())
}

func TestRoute_SetWithoutTextKeepsPrompt(t *testing.T) {
	r, c := newRouter(t, true)
	before := c.Active()

	cmd := r.Route("U1", "/set    ")
	assert.Equal(t, ShowPrompt, cmd.Kind)
	assert.Equal(t, before, c.Active())

	cmd = r.Route("U1", "/setting")
	assert.Equal(t, Chat, cmd.Kind)
	assert.Equal(t, before, c.Active())
}

func TestRoute_GenerateImage(t *testing.T) {
	r, c := newRouter(t, true)
	before := c.Active()

	cmd := r.Route("U1", "/imagine  a red fox in snow ")
	assert.Equal(t, Command{Kind: GenerateImage, Text: "a red fox in snow"}, cmd)
	assert.False(t, cmd.Notifies())
	assert.Equal(t, before, c.Active())

	cmd = r.Route("U1", "/imagine")
	assert.Equal(t, Command{Kind: GenerateImage, Text: ""}, cmd)
}

func TestRoute_ImaginePrefixStrict(t *testing.T) {
	r, _ := newRouter(t, true)

	cmd := r.Route("U1", "/imagineer")
	assert.Equal(t, Chat, cmd.Kind)
	assert.Equal(t, "/imagineer", cmd.Text)
}

func TestRoute_ImaginePrefixRaw(t *testing.T) {
	r, _ := newRouter(t, false)

	cmd := r.Route("U1", "/imagineer")
	assert.Equal(t, Command{Kind: GenerateImage, Text: "er"}, cmd)
}

func TestRoute_ChatKeepsRawText(t *testing.T) {
	r, c := newRouter(t, true)
	before := c.Active()

	cmd := r.Route("U1", "  What is 2+2?  ")
	assert.Equal(t, Command{Kind: Chat, Text: "  What is 2+2?  "}, cmd)
	assert.False(t, cmd.Notifies())

	cmd = r.Route("U1", "/9")
	assert.Equal(t, Chat, cmd.Kind, "unknown keys fall through to chat")
	assert.Equal(t, before, c.Active())
}

func TestRoute_PresetTakesPriorityOverSet(t *testing.T) {
	presets := prompt.Defaults()
	presets["/set x"] = "preset wins"
	c, err := prompt.NewCatalog(presets, prompt.TranslateKey)
	require.NoError(t, err)
	r := NewRouter(c, true)

	cmd := r.Route("U1", "/set x")
	assert.Equal(t, SelectPreset, cmd.Kind)
	assert.Equal(t, "preset wins", c.Active())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "chat", Chat.String())
	assert.Equal(t, "generate_image", GenerateImage.String())
	assert.Equal(t, "select_preset", SelectPreset.String())
}
