package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/genricoloni/volt/internal/domain"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	defaultAPIBaseURL     = "http://localhost:5000/api"
	defaultListenAddr     = "127.0.0.1:7878"
	defaultDataDir        = "~/.local/share/volt"
	defaultCacheDir       = "/tmp/volt"
	defaultRefreshRate    = 60
	defaultHealthInterval = 30
)

// AppConfig holds application configuration
type AppConfig struct {
	logger         *zap.Logger
	apiBaseURL     string
	listenAddr     string
	dataDir        string
	cacheDir       string
	viewport       domain.ScreenResolution
	refreshRate    int
	healthInterval int
	mprisEnabled   bool
}

// NewAppConfig creates a new application configuration instance.
// Values come from VOLT_* environment variables, then an optional file named by VOLT_CONFIG.
func NewAppConfig(logger *zap.Logger) *AppConfig {
	return newAppConfig(logger, viper.New())
}

func newAppConfig(logger *zap.Logger, v *viper.Viper) *AppConfig {
	v.SetEnvPrefix("VOLT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(expandPath(path))
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("Could not read config file, using environment and defaults",
				zap.String("path", path),
				zap.Error(err))
		}
	}

	refresh := v.GetInt("refresh_rate")
	if refresh <= 0 {
		refresh = defaultRefreshRate
	}
	interval := v.GetInt("health_interval")
	if interval <= 0 {
		interval = defaultHealthInterval
	}

	cfg := &AppConfig{
		logger:     logger,
		apiBaseURL: strings.TrimRight(v.GetString("api_url"), "/"),
		listenAddr: v.GetString("listen_addr"),
		dataDir:    expandPath(v.GetString("data_dir")),
		cacheDir:   expandPath(v.GetString("cache_dir")),
		viewport: domain.ScreenResolution{
			Width:  v.GetInt("viewport_width"),
			Height: v.GetInt("viewport_height"),
		},
		refreshRate:    refresh,
		healthInterval: interval,
		mprisEnabled:   v.GetBool("mpris"),
	}

	logger.Info("Configuration loaded",
		zap.String("apiBaseURL", cfg.apiBaseURL),
		zap.String("listenAddr", cfg.listenAddr),
		zap.String("dataDir", cfg.dataDir),
		zap.String("cacheDir", cfg.cacheDir),
		zap.Int("refreshRate", cfg.refreshRate),
		zap.Bool("mpris", cfg.mprisEnabled))

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", defaultAPIBaseURL)
	v.SetDefault("listen_addr", defaultListenAddr)
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("cache_dir", defaultCacheDir)
	v.SetDefault("viewport_width", 0)
	v.SetDefault("viewport_height", 0)
	v.SetDefault("refresh_rate", defaultRefreshRate)
	v.SetDefault("health_interval", defaultHealthInterval)
	v.SetDefault("mpris", true)
	v.SetDefault("config", "")
}

// Expand path if it contains ~ or environment variables
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}

// GetAPIBaseURL returns the backend API root, without a trailing slash
func (c *AppConfig) GetAPIBaseURL() string {
	return c.apiBaseURL
}

// GetListenAddr returns the HTTP control API address
func (c *AppConfig) GetListenAddr() string {
	return c.listenAddr
}

// GetDataDir returns the directory holding durable state
func (c *AppConfig) GetDataDir() string {
	return c.dataDir
}

// GetCacheDir returns the directory for generated artwork
func (c *AppConfig) GetCacheDir() string {
	return c.cacheDir
}

// GetViewport returns the configured visualizer viewport; zero values mean "detect"
func (c *AppConfig) GetViewport() domain.ScreenResolution {
	return c.viewport
}

// GetRefreshRate returns the visualizer frame rate in Hz
func (c *AppConfig) GetRefreshRate() int {
	return c.refreshRate
}

// GetHealthInterval returns the backend probe interval in seconds
func (c *AppConfig) GetHealthInterval() int {
	return c.healthInterval
}

// MPRISEnabled reports whether the session should be exported on D-Bus
func (c *AppConfig) MPRISEnabled() bool {
	return c.mprisEnabled
}
