package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var once sync.Once
var logger *zap.SugaredLogger
var loggerOnce sync.Once

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_header_timeout", "15s")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")

	viper.SetDefault("weatherapi.base_url", "https://api.weatherapi.com/v1")
	viper.SetDefault("weatherapi.search_path", "/search.json")
	viper.SetDefault("weatherapi.forecast_path", "/forecast.json")
	viper.SetDefault("weatherapi.timeout", "10s")
	viper.SetDefault("weatherapi.max_days", 14)

	viper.SetDefault("app.default_city", "ahmedabad")
	viper.SetDefault("search.debounce", "800ms")
	viper.SetDefault("forecast.days", 7)

	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.state_key", "weather:state")
	viper.SetDefault("redis.state_channel", "weather:state:changes")
	viper.SetDefault("redis.state_ttl", "24h")
	viper.SetDefault("redis.publish_timeout", "2s")

	viper.SetDefault("log.development", true)
	viper.SetDefault("log.level", "info")
}

func initConfig() {
	var loadErr error
	once.Do(func() {
		setDefaults()
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		root, err := getProjectRoot()
		if err != nil {
			loadErr = err
			return
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
		viper.AddConfigPath(root)
		loadErr = viper.ReadInConfig()
	})
	if loadErr != nil {
		GetLogger().Warnw("Error reading config file, using defaults", "error", loadErr)
	}
}

func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// durationOr parses the duration stored under key, returning def when unset or invalid.
func durationOr(key string, def time.Duration) time.Duration {
	initConfig()
	raw := viper.GetString(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		GetLogger().Warnw("Invalid duration in config", "key", key, "value", raw)
		return def
	}
	return d
}

func GetWeatherAPIBaseURL() string {
	initConfig()
	return strings.TrimRight(viper.GetString("weatherapi.base_url"), "/")
}

func GetWeatherAPISearchPath() string {
	initConfig()
	return viper.GetString("weatherapi.search_path")
}

func GetWeatherAPIForecastPath() string {
	initConfig()
	return viper.GetString("weatherapi.forecast_path")
}

// GetWeatherAPIKey reads the provider key from the environment, loading .env first if present.
func GetWeatherAPIKey() string {
	_ = godotenv.Load()
	return os.Getenv("WEATHERAPI_KEY")
}

func GetWeatherAPITimeout() time.Duration {
	return durationOr("weatherapi.timeout", 10*time.Second)
}

// GetWeatherAPIMaxDays is the provider's forecast horizon limit.
func GetWeatherAPIMaxDays() int {
	initConfig()
	if d := viper.GetInt("weatherapi.max_days"); d > 0 {
		return d
	}
	return 14
}

func GetDefaultCity() string {
	initConfig()
	if city := viper.GetString("app.default_city"); city != "" {
		return city
	}
	return "ahmedabad"
}

func GetDebounceInterval() time.Duration {
	return durationOr("search.debounce", 800*time.Millisecond)
}

func GetForecastDays() int {
	initConfig()
	if d := viper.GetInt("forecast.days"); d > 0 {
		return d
	}
	return 7
}

func GetServerPort() string {
	initConfig()
	return viper.GetString("server.port")
}

// GetServerTimeout returns server.<key> as a duration, falling back to 15s.
func GetServerTimeout(key string) time.Duration {
	return durationOr("server."+key, 15*time.Second)
}

func IsRedisEnabled() bool {
	initConfig()
	return viper.GetBool("redis.enabled")
}

func GetRedisAddr() string {
	initConfig()
	return viper.GetString("redis.addr")
}

func GetRedisStateKey() string {
	initConfig()
	return viper.GetString("redis.state_key")
}

func GetRedisStateChannel() string {
	initConfig()
	return viper.GetString("redis.state_channel")
}

// GetRedisStateTTL is how long the latest published state survives in Redis. Zero keeps it forever.
func GetRedisStateTTL() time.Duration {
	return durationOr("redis.state_ttl", 24*time.Hour)
}

func GetRedisPublishTimeout() time.Duration {
	return durationOr("redis.publish_timeout", 2*time.Second)
}

// ReloadConfigForTest resets the config singleton and reloads Viper config. Use only in tests.
func ReloadConfigForTest() {
	once = sync.Once{}
	initConfig()
}

func GetLogger() *zap.SugaredLogger {
	initConfig()
	loggerOnce.Do(func() {
		cfg := zap.NewDevelopmentConfig()
		if !viper.GetBool("log.development") {
			cfg = zap.NewProductionConfig()
		}
		if lvl, err := zapcore.ParseLevel(viper.GetString("log.level")); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
		l, err := cfg.Build()
		if err != nil {
			panic(err)
		}
		logger = l.Sugar()
	})
	return logger
}
