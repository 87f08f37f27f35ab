package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Channel kinds selectable via the CHANNEL variable.
const (
	ChannelCloud  = "cloud"
	ChannelBridge = "bridge"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server  ServerConfig
	Agent   AgentConfig
	AI      AIConfig
	Redis   RedisConfig
	Channel ChannelConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	agent, err := loadAgentConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	redis, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	channel, err := loadChannelConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Agent:   agent,
		AI:      ai,
		Redis:   redis,
		Channel: channel,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AgentConfig describes the ordering agent itself.
type AgentConfig struct {
	StoreName        string
	GeneratorTimeout time.Duration
	StoreTimeout     time.Duration
	SessionTTL       time.Duration
}

func loadAgentConfig() (AgentConfig, error) {
	genTimeout, err := parseDurationEnv("GENERATOR_TIMEOUT", 60*time.Second)
	if err != nil {
		return AgentConfig{}, err
	}

	storeTimeout, err := parseDurationEnv("STORE_TIMEOUT", 5*time.Second)
	if err != nil {
		return AgentConfig{}, err
	}

	ttl, err := parseDurationEnv("SESSION_TTL", 0)
	if err != nil {
		return AgentConfig{}, err
	}

	return AgentConfig{
		StoreName:        getEnvOrDefault("STORE_NAME", "Lucas"),
		GeneratorTimeout: genTimeout,
		StoreTimeout:     storeTimeout,
		SessionTTL:       ttl,
	}, nil
}

// AIConfig describes the Ark language model backing the agent.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("missing Ark credentials: provide ARK_API_KEY + Model or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		// Ordering conversations want low variance.
		def := 0.3
		temperature = &def
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	if maxTokens == nil {
		def := 256
		maxTokens = &def
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// RedisConfig describes the session store backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func loadRedisConfig() (RedisConfig, error) {
	db := 0
	if override, err := parseOptionalIntEnv("REDIS_DB"); err != nil {
		return RedisConfig{}, err
	} else if override != nil {
		db = *override
	}

	return RedisConfig{
		Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		Password: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		DB:       db,
	}, nil
}

// ChannelConfig selects and configures the messaging transport.
type ChannelConfig struct {
	Kind     string
	WhatsApp WhatsAppConfig
	Bridge   BridgeConfig
}

// WhatsAppConfig holds WhatsApp Cloud API settings.
type WhatsAppConfig struct {
	VerifyToken string
	Token       string
	PhoneID     string
	APIBase     string
}

// BridgeConfig points at a local WhatsApp web bridge.
type BridgeConfig struct {
	URL string
}

func loadChannelConfig() (ChannelConfig, error) {
	kind := getEnvOrDefault("CHANNEL", ChannelCloud)
	if kind != ChannelCloud && kind != ChannelBridge {
		return ChannelConfig{}, fmt.Errorf("invalid CHANNEL value %q: want %q or %q", kind, ChannelCloud, ChannelBridge)
	}

	return ChannelConfig{
		Kind: kind,
		WhatsApp: WhatsAppConfig{
			VerifyToken: strings.TrimSpace(os.Getenv("WHATSAPP_VERIFY_TOKEN")),
			Token:       strings.TrimSpace(os.Getenv("WHATSAPP_TOKEN")),
			PhoneID:     strings.TrimSpace(os.Getenv("WHATSAPP_PHONE_ID")),
			APIBase:     getEnvOrDefault("WHATSAPP_API_BASE", "https://graph.facebook.com/v20.0"),
		},
		Bridge: BridgeConfig{
			URL: getEnvOrDefault("BRIDGE_URL", "ws://localhost:8466/ws"),
		},
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
