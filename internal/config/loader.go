package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   Server   `mapstructure:"server"`
	OpenAI   OpenAI   `mapstructure:"openai"`
	Line     Line     `mapstructure:"line"`
	Telegram Telegram `mapstructure:"telegram"`
	Chat     Chat     `mapstructure:"chat"`
	Prompts  Prompts  `mapstructure:"prompts"`
	Stock    Stock    `mapstructure:"stock"`
	Logging  Logging  `mapstructure:"logging"`
}

type Server struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	TempDir      string        `mapstructure:"temp_dir"`
}

type OpenAI struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	Model        string `mapstructure:"model"`
	ImageSize    string `mapstructure:"image_size"`
	WhisperModel string `mapstructure:"whisper_model"`
}

type Line struct {
	ChannelSecret string `mapstructure:"channel_secret"`
	ChannelToken  string `mapstructure:"channel_token"`
	OperatorID    string `mapstructure:"operator_id"`
}

func (l Line) Enabled() bool { return l.ChannelSecret != "" || l.ChannelToken != "" }

type Telegram struct {
	Token          string `mapstructure:"token"`
	OperatorChatID int64  `mapstructure:"operator_chat_id"`
}

func (t Telegram) Enabled() bool { return t.Token != "" }

type Chat struct {
	SystemMessage     string `mapstructure:"system_message"`
	DefaultPrompt     string `mapstructure:"default_prompt"`
	MaxHistory        int    `mapstructure:"max_history"`
	StrictImagine     bool   `mapstructure:"strict_imagine"`
	ApplyActivePrompt bool   `mapstructure:"apply_active_prompt"`
	FallbackReply     string `mapstructure:"fallback_reply"`
}

type Prompts struct {
	File string `mapstructure:"file"`
}

type Stock struct {
	URL        string `mapstructure:"url"`
	MaxRetries int    `mapstructure:"max_retries"`
}

type Logging struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// legacyEnv are the variable names the bot was first deployed with.
var legacyEnv = map[string]string{
	"line.channel_token":  "LINE_CHANNEL_ACCESS_TOKEN",
	"line.channel_secret": "LINE_CHANNEL_SECRET",
	"line.operator_id":    "LINE_USER_ID",
	"openai.api_key":      "OPENAI_API",
	"openai.model":        "OPENAI_MODEL_ENGINE",
	"chat.system_message": "SYSTEM_MESSAGE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.temp_dir", "")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.image_size", "512x512")
	v.SetDefault("openai.whisper_model", "whisper-1")

	v.SetDefault("line.channel_secret", "")
	v.SetDefault("line.channel_token", "")
	v.SetDefault("line.operator_id", "")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.operator_chat_id", 0)

	v.SetDefault("chat.system_message", "You are a helpful assistant.")
	v.SetDefault("chat.default_prompt", "/1")
	v.SetDefault("chat.max_history", 20)
	v.SetDefault("chat.strict_imagine", true)
	v.SetDefault("chat.apply_active_prompt", true)
	v.SetDefault("chat.fallback_reply", "")

	v.SetDefault("prompts.file", "")

	v.SetDefault("stock.url", "https://histock.tw/stock/public.aspx")
	v.SetDefault("stock.max_retries", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// Load reads config/<name>.yaml when present and overlays the environment:
// OPENAI_API_KEY sets openai.api_key, CHAT_MAX_HISTORY sets chat.max_history
// and so on. The first deployment variables (LINE_CHANNEL_SECRET, OPENAI_API ...) are honoured as well.
func Load(name string, paths ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(name)
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("config bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config load error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config unmarshal error: %w", err)
	}
	return cfg, nil
}

// Validate checks what serving needs: model credentials and at least one
// complete channel.
func (c Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("openai.api_key (OPENAI_API_KEY) is required")
	}
	if !c.Line.Enabled() && !c.Telegram.Enabled() {
		return errors.New("no channel configured: set line.channel_secret/line.channel_token or telegram.token")
	}
	if c.Line.Enabled() && (c.Line.ChannelSecret == "" || c.Line.ChannelToken == "") {
		return errors.New("line.channel_secret and line.channel_token must both be set")
	}
	if strings.TrimSpace(c.Chat.DefaultPrompt) == "" {
		return errors.New("chat.default_prompt must not be empty")
	}
	return nil
}
