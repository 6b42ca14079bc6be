package main

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"ufcstats-gateway/middleware/ratelimit"
	"ufcstats-gateway/middleware/ratelimit/domain"

	"github.com/spf13/viper"
)

type redisStatsConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	Prefix    string        `mapstructure:"prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
	Bucket    string        `mapstructure:"bucket"`
	TrackKeys bool          `mapstructure:"track_keys"`
}

type config struct {
	ServiceName    string `mapstructure:"service_name"`
	Env            string `mapstructure:"env"`
	LogLevel       string `mapstructure:"log_level"`
	ListenAddr     string `mapstructure:"listen_addr"`
	UpstreamURL    string `mapstructure:"upstream_url"`
	MetricsPath    string `mapstructure:"metrics_path"`
	SweepThreshold int    `mapstructure:"sweep_threshold"`

	SignIn struct {
		PathPrefix string        `mapstructure:"path_prefix"`
		KeyPrefix  string        `mapstructure:"key_prefix"`
		Limit      int           `mapstructure:"limit"`
		Window     time.Duration `mapstructure:"window"`
		// TrustedProxies lista os peers cujo X-Forwarded-For é aceito. Vazio
		// confia nos headers de qualquer peer (gateway atrás de um LB).
		TrustedProxies []string `mapstructure:"trusted_proxies"`
	} `mapstructure:"signin"`

	Burst struct {
		Enabled      bool          `mapstructure:"enabled"`
		Limit        int           `mapstructure:"limit"`
		Window       time.Duration `mapstructure:"window"`
		IdleTTL      time.Duration `mapstructure:"idle_ttl"`
		CleanupEvery time.Duration `mapstructure:"cleanup_every"`
	} `mapstructure:"burst"`

	Concurrency struct {
		Max     int           `mapstructure:"max"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"concurrency"`

	Stats struct {
		Redis redisStatsConfig `mapstructure:"redis"`
	} `mapstructure:"stats"`
}

func (c config) signInPolicy() domain.Policy {
	return domain.Policy{Limit: c.SignIn.Limit, Window: c.SignIn.Window}
}

func (c config) burstPolicy() domain.Policy {
	return domain.Policy{Limit: c.Burst.Limit, Window: c.Burst.Window}
}

func (c config) trustedProxies() ([]netip.Prefix, error) {
	return ratelimit.ParseTrustedProxies(c.SignIn.TrustedProxies)
}

// loadConfig lê GATEWAY_* do ambiente e, quando path é informado, o YAML em
// GATEWAY_CONFIG. Arquivo informado e ausente é erro.
func loadConfig(path string) (config, error) {
	v := viper.New()
	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "ufcstats-gateway")
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("upstream_url", "")
	v.SetDefault("metrics_path", "/metrics")
	v.SetDefault("sweep_threshold", 1000)

	v.SetDefault("signin.path_prefix", "/api/auth/")
	v.SetDefault("signin.key_prefix", "rate-limit:")
	v.SetDefault("signin.limit", domain.SignInPolicy.Limit)
	v.SetDefault("signin.window", domain.SignInPolicy.Window)
	v.SetDefault("signin.trusted_proxies", []string{})

	v.SetDefault("burst.enabled", false)
	v.SetDefault("burst.limit", 50)
	v.SetDefault("burst.window", "10s")
	v.SetDefault("burst.idle_ttl", "15m")
	v.SetDefault("burst.cleanup_every", "2m")

	v.SetDefault("concurrency.max", 100)
	v.SetDefault("concurrency.timeout", "0s")

	v.SetDefault("stats.redis.addr", "")
	v.SetDefault("stats.redis.password", "")
	v.SetDefault("stats.redis.db", 0)
	v.SetDefault("stats.redis.prefix", "ufcstats:ratelimit:stats")
	v.SetDefault("stats.redis.ttl", "24h")
	v.SetDefault("stats.redis.bucket", "minute")
	v.SetDefault("stats.redis.track_keys", false)
}

func (c config) validate() error {
	if strings.TrimSpace(c.UpstreamURL) == "" {
		return errors.New("GATEWAY_UPSTREAM_URL is required")
	}
	if !strings.HasPrefix(c.SignIn.PathPrefix, "/") {
		return errors.New("signin.path_prefix must start with /")
	}
	if err := c.signInPolicy().Validate(); err != nil {
		return fmt.Errorf("signin: %w", err)
	}
	if _, err := c.trustedProxies(); err != nil {
		return fmt.Errorf("signin: %w", err)
	}
	if c.Burst.Enabled {
		if err := c.burstPolicy().Validate(); err != nil {
			return fmt.Errorf("burst: %w", err)
		}
	}
	if c.SweepThreshold <= 0 {
		return errors.New("sweep_threshold must be > 0")
	}
	if c.Concurrency.Max < 0 {
		return errors.New("concurrency.max must be >= 0")
	}
	return nil
}
