package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wutienyang/ChatGPT-Line-Bot/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		OpenAI: config.OpenAI{APIKey: "k"},
		Line:   config.Line{ChannelSecret: "s", ChannelToken: "t", OperatorID: "Uop"},
		Chat:   config.Chat{SystemMessage: "sys", DefaultPrompt: "/1", MaxHistory: 4, StrictImagine: true},
	}
}

func TestBuildApp_LineRoutes(t *testing.T) {
	a, err := buildApp(testConfig(), zap.NewNop(), nil)
	require.NoError(t, err)
	assert.Nil(t, a.telegram)
	assert.Equal(t, 4, a.memory.MaxHistory())

	ts := httptest.NewServer(a.server.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Unsigned callbacks are rejected by the LINE webhook.
	resp, err = http.Post(ts.URL+"/callback", "application/json", bytes.NewBufferString(`{"events":[]}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBuildApp_PromptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prompts:\n  /3: \"Summarize.\"\n"), 0o644))

	cfg := testConfig()
	cfg.Prompts.File = path
	cfg.Chat.DefaultPrompt = "/3"
	_, err := buildApp(cfg, zap.NewNop(), nil)
	require.NoError(t, err)

	cfg.Prompts.File = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = buildApp(cfg, zap.NewNop(), nil)
	require.Error(t, err)
}

func TestBuildApp_MissingKey(t *testing.T) {
	cfg := testConfig()
	cfg.OpenAI.APIKey = ""

	_, err := buildApp(cfg, zap.NewNop(), nil)
	require.Error(t, err)
}

func TestStockCommand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<table class="gvTB"><tr><th>代號</th><th>狀態</th></tr><tr><td>1234</td><td>申購中</td></tr></table>`)
	}))
	defer ts.Close()
	t.Setenv("STOCK_URL", ts.URL)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"stock", "--config", "does-not-exist"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "代號 : 1234\n狀態 : 申購中\n", out.String())
}
