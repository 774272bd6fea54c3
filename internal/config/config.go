// Package config loads service configuration from an optional YAML file
// with FELDSHER_* environment overrides on top.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Candidate configures one provider in the fallback chain, tried in list
// order.
type Candidate struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"` // "openai" or "compat"
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Config is the full service configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	LogLevel   string `yaml:"log_level"`

	Providers []Candidate `yaml:"providers"`

	Slack struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"slack"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`

	MCP struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"mcp"`

	ReportCron string `yaml:"report_cron"`
}

// Load reads path (skipped when empty or absent), then applies env overrides
// and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no provider candidates configured")
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setStr(&c.ListenAddr, "FELDSHER_LISTEN_ADDR")
	setStr(&c.DBPath, "FELDSHER_DB_PATH")
	setStr(&c.LogLevel, "FELDSHER_LOG_LEVEL")
	setStr(&c.Slack.WebhookURL, "FELDSHER_SLACK_WEBHOOK_URL")
	setStr(&c.Telegram.Token, "FELDSHER_TELEGRAM_TOKEN")
	setStr(&c.SMTP.Host, "FELDSHER_SMTP_HOST")
	setStr(&c.SMTP.Port, "FELDSHER_SMTP_PORT")
	setStr(&c.SMTP.Username, "FELDSHER_SMTP_USERNAME")
	setStr(&c.SMTP.Password, "FELDSHER_SMTP_PASSWORD")
	setStr(&c.SMTP.From, "FELDSHER_SMTP_FROM")
	setStr(&c.MCP.Addr, "FELDSHER_MCP_ADDR")
	setStr(&c.ReportCron, "FELDSHER_REPORT_CRON")

	if v := os.Getenv("FELDSHER_TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("FELDSHER_MCP_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.MCP.Enabled = b
		}
	}

	// Single-provider shortcut for local runs: an OpenAI key alone is a
	// complete chain of one.
	if len(c.Providers) == 0 {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.Providers = append(c.Providers, Candidate{
				Name:   "openai",
				Kind:   "openai",
				APIKey: key,
				Model:  envOr("FELDSHER_MODEL", "gpt-4o-mini"),
			})
		}
		if key := os.Getenv("GROQ_API_KEY"); key != "" {
			c.Providers = append(c.Providers, Candidate{
				Name:   "groq",
				Kind:   "compat",
				APIURL: "https://api.groq.com/openai/v1",
				APIKey: key,
				Model:  envOr("FELDSHER_GROQ_MODEL", "llama-3.3-70b-versatile"),
			})
		}
	}
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = "feldsher.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MCP.Addr == "" {
		c.MCP.Addr = ":8081"
	}
	if c.ReportCron == "" {
		c.ReportCron = "0 18 * * *"
	}
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// LoadDotenv loads KEY=VALUE pairs from a .env file into the process
// environment. Existing variables win. A missing file is not an error.
func LoadDotenv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, val)
		}
	}
	return sc.Err()
}
