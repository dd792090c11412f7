package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	Auth struct {
		AccessTokenSecret   string
		RefreshTokenSecret  string
		EmailVerifySecret   string
		AccessTokenTTL      time.Duration
		RefreshTokenTTL     time.Duration
		EmailVerifyTokenTTL time.Duration
		ResendDebounce      time.Duration
		PasswordPepper      string
		PasswordIterations  int
	}
	Catalog struct {
		BaseURL string
		APIKey  string
		Timeout time.Duration
	}
	Mailer struct {
		QueueSize int
		Workers   int
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("CINEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/cinegate.db")
	v.SetDefault("auth.accesstokensecret", "")
	v.SetDefault("auth.refreshtokensecret", "")
	v.SetDefault("auth.emailverifysecret", "")
	v.SetDefault("auth.accesstokenttl", "15m")
	v.SetDefault("auth.refreshtokenttl", "720h")
	v.SetDefault("auth.emailverifytokenttl", "24h")
	v.SetDefault("auth.resenddebounce", "60s")
	v.SetDefault("auth.passwordpepper", "")
	v.SetDefault("auth.passworditerations", 0)
	v.SetDefault("catalog.baseurl", "https://api.themoviedb.org/3")
	v.SetDefault("catalog.apikey", "")
	v.SetDefault("catalog.timeout", "10s")
	v.SetDefault("mailer.queuesize", 64)
	v.SetDefault("mailer.workers", 2)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
