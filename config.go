package main

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v6"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
)

// ApplicationName is used to determine where files will be stored within the
// XDG directory system.
var ApplicationName = "tgdigest"

// ErrMissingCredentials is returned by Validate when the Telegram API id or
// hash is not configured.
var ErrMissingCredentials = errors.New("telegram api id and api hash are required")

const (
	BackendTDLib   = "tdlib"
	BackendMTProto = "mtproto"
)

// Config contains the configuration for the application. Values come from
// the TOML file, then the environment, then the keyring for secrets.
type Config struct {
	StateDirectory string `toml:"state_directory" env:"TDLIB_STATE_DIR"`
	Backend        string `toml:"backend" env:"TGDIGEST_BACKEND"`

	Telegram TelegramConfig `toml:"telegram"`
	TDLib    TDLibConfig    `toml:"tdlib"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Bot      BotConfig      `toml:"bot"`
	Digest   DigestConfig   `toml:"digest"`
}

type TelegramConfig struct {
	APIID       int32  `toml:"api_id" env:"TELEGRAM_API_ID"`
	APIHash     string `toml:"api_hash,omitempty" env:"TELEGRAM_API_HASH"`
	PhoneNumber string `toml:"phone_number" env:"TELEGRAM_PHONE"`
	UseTestDC   bool   `toml:"use_test_dc"`
	// FillPeerStorage collects peers from all dialogs on start (mtproto only).
	FillPeerStorage bool `toml:"fill_peer_storage"`
}

type TDLibConfig struct {
	EncryptionKey string `toml:"database_encryption_key,omitempty" env:"TDLIB_DATABASE_ENCRYPTION_KEY"`
	LogVerbosity  int    `toml:"log_verbosity" env:"TDLIB_LOG_VERBOSITY"`
}

type OpenAIConfig struct {
	APIKey    string `toml:"api_key,omitempty" env:"OPENAI_API_KEY"`
	Model     string `toml:"model" env:"OPENAI_MODEL"`
	BaseURL   string `toml:"base_url"`
	MaxTokens int    `toml:"max_tokens"`
}

type BotConfig struct {
	Token  string `toml:"token,omitempty" env:"TELEGRAM_BOT_TOKEN"`
	ChatID int64  `toml:"chat_id" env:"TELEGRAM_BOT_CHAT_ID"`
}

type DigestConfig struct {
	// Channels restricts the digest to these usernames or titles.
	Channels     []string `toml:"channels" env:"TGDIGEST_CHANNELS"`
	MarkAsRead   bool     `toml:"mark_as_read"`
	ResolveLinks bool     `toml:"resolve_links"`
}

func defaultConfig() *Config {
	return &Config{
		StateDirectory: filepath.Join(xdg.StateHome, ApplicationName),
		Backend:        BackendTDLib,
		TDLib:          TDLibConfig{LogVerbosity: 1},
		OpenAI:         OpenAIConfig{Model: "gpt-4o-mini", MaxTokens: 1000},
		Digest:         DigestConfig{MarkAsRead: true},
	}
}

// Keyring entries, by the name used with "secrets set".
const (
	keyringService = "tgdigest"

	SecretAPIHash       = "telegram_api_hash"
	SecretEncryptionKey = "tdlib_database_encryption_key"
	SecretOpenAIKey     = "openai_api_key"
	SecretBotToken      = "telegram_bot_token"
)

// secretNames lists the accepted "secrets set" names.
var secretNames = []string{SecretAPIHash, SecretEncryptionKey, SecretOpenAIKey, SecretBotToken}

func (c *Config) secrets() map[string]*string {
	return map[string]*string{
		SecretAPIHash:       &c.Telegram.APIHash,
		SecretEncryptionKey: &c.TDLib.EncryptionKey,
		SecretOpenAIKey:     &c.OpenAI.APIKey,
		SecretBotToken:      &c.Bot.Token,
	}
}

func readConfigFile(configFilePath string) (cfg *Config, err error) {
	configFilePath = filepath.Clean(configFilePath)
	fileContent, err := os.ReadFile(configFilePath)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config file")
	}
	cfg = defaultConfig()
	if err := toml.Unmarshal(fileContent, cfg); err != nil {
		return nil, errors.Wrap(err, "unable to parse config file")
	}
	return cfg, nil
}

func writeConfig(configFilePath string, cfg Config) error {
	configFilePath = filepath.Clean(configFilePath)
	if err := os.MkdirAll(filepath.Dir(configFilePath), 0o700); err != nil {
		return errors.Wrap(err, "unable to create config dir")
	}
	file, err := os.OpenFile(configFilePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Wrap(err, "unable to create config file")
	}
	defer file.Close()
	// Secrets live in the keyring, not in the file.
	cfg.Telegram.APIHash = ""
	cfg.TDLib.EncryptionKey = ""
	cfg.OpenAI.APIKey = ""
	cfg.Bot.Token = ""
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return errors.Wrap(err, "unable to write config file")
	}
	return nil
}

// applyEnv loads .env when present and lets set variables override cfg.
func applyEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "load env")
	}
	if err := env.Parse(cfg); err != nil {
		return errors.Wrap(err, "parse env")
	}
	return nil
}

// applyKeyring fills the secrets that are still empty.
func applyKeyring(cfg *Config, lg *zap.Logger) {
	for name, value := range cfg.secrets() {
		if *value != "" {
			continue
		}
		secret, err := keyring.Get(keyringService, name)
		switch {
		case err == nil:
			*value = secret
		case errors.Is(err, keyring.ErrNotFound):
		default:
			lg.Debug("Keyring lookup failed", zap.String("name", name), zap.Error(err))
		}
	}
}

func setSecret(name, value string) error {
	if _, ok := (&Config{}).secrets()[name]; !ok {
		return errors.Errorf("unknown secret %q (known: %v)", name, secretNames)
	}
	if err := keyring.Set(keyringService, name, value); err != nil {
		return errors.Wrap(err, "keyring")
	}
	return nil
}

// Validate checks the settings every command needs. Delivery settings are
// only required when a digest is going to be sent.
func (c *Config) Validate(delivery bool) error {
	if c.Telegram.APIID == 0 || c.Telegram.APIHash == "" {
		return ErrMissingCredentials
	}
	switch c.Backend {
	case BackendTDLib, BackendMTProto:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if !delivery {
		return nil
	}
	if c.OpenAI.APIKey == "" {
		return errors.New("openai api key is required")
	}
	if c.Bot.Token == "" || c.Bot.ChatID == 0 {
		return errors.New("bot token and chat id are required")
	}
	return nil
}

// configPrompter asks for the values of a new config file.
type configPrompter interface {
	Ask(label string, secret bool) (string, error)
}

// readConfig reads the config file and returns it in a config struct. If the
// file does not exist and the environment does not already carry the API
// credentials, a new one is created from user input.
func readConfig(configFilePath string, ask configPrompter, lg *zap.Logger) (*Config, error) {
	cfg, err := readConfigFile(configFilePath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		cfg = defaultConfig()
		if err := applyEnv(cfg); err != nil {
			return nil, err
		}
		applyKeyring(cfg, lg)
		if cfg.Validate(false) == nil || ask == nil {
			return cfg, nil
		}
		if err := createConfig(configFilePath, cfg, ask); err != nil {
			return nil, err
		}
		return cfg, nil
	default:
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyKeyring(cfg, lg)
	return cfg, nil
}

func createConfig(configFilePath string, cfg *Config, ask configPrompter) error {
	phone, err := ask.Ask("Telegram phone number (+1234567890)", false)
	if err != nil {
		return err
	}
	appID, err := ask.Ask("Telegram app id", false)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(appID, 10, 32)
	if err != nil {
		return errors.Wrap(err, "parse app id")
	}
	appHash, err := ask.Ask("Telegram app hash", true)
	if err != nil {
		return err
	}
	cfg.Telegram.PhoneNumber = phone
	cfg.Telegram.APIID = int32(id)
	cfg.Telegram.APIHash = appHash

	if err := writeConfig(configFilePath, *cfg); err != nil {
		return err
	}
	return setSecret(SecretAPIHash, appHash)
}

func configFilePath() (string, error) {
	p, err := xdg.ConfigFile(ApplicationName + "/config.toml")
	if err != nil {
		return "", errors.Wrap(err, "config path")
	}
	return p, nil
}
