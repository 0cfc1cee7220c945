package config

import (
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
)

var once sync.Once

// Default aliases per price provider; the two services use different coin ids.
const (
	coinGeckoAliases   = "e=ethereum,m=monero,p=polkadot,t=tron"
	coinpaprikaAliases = "e=eth-ethereum,m=xmr-monero,p=dot-polkadot,t=trx-tron"
)

func InitConfig() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("api_pro_key", "API_PRO_KEY")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")
		viper.BindEnv("log_file", "LOG_FILE")
		viper.BindEnv("price_provider", "PRICE_PROVIDER")
		viper.BindEnv("coingecko_url", "COINGECKO_URL")
		viper.BindEnv("coingecko_api_key", "COINGECKO_API_KEY")
		viper.BindEnv("currency", "CURRENCY")
		viper.BindEnv("http_timeout", "HTTP_TIMEOUT")
		viper.BindEnv("alert_interval", "ALERT_INTERVAL")
		viper.BindEnv("aliases", "ALIASES")
		viper.BindEnv("storage", "STORAGE")
		viper.BindEnv("data_dir", "DATA_DIR")
		viper.BindEnv("database_path", "DATABASE_PATH")
		viper.BindEnv("buntdb_path", "BUNTDB_PATH")
		viper.BindEnv("redis_addr", "REDIS_ADDR")
		viper.BindEnv("redis_prefix", "REDIS_PREFIX")

		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
		viper.SetDefault("price_provider", "coingecko")
		viper.SetDefault("coingecko_url", "https://api.coingecko.com/api/v3")
		viper.SetDefault("currency", "eur")
		viper.SetDefault("http_timeout", "10s")
		viper.SetDefault("alert_interval", "900s")
		viper.SetDefault("aliases", DefaultAliases(viper.GetString("price_provider")))
		viper.SetDefault("storage", "file")
		viper.SetDefault("data_dir", ".")
		viper.SetDefault("database_path", "bot.db")
		viper.SetDefault("buntdb_path", "alerts.db")
		viper.SetDefault("redis_addr", "localhost:6379")
		viper.SetDefault("redis_prefix", "crypto-bot:")
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

// GetDuration accepts Go durations and day/week units ("900s", "15m", "1d").
// Unparseable values yield fallback.
func GetDuration(key string, fallback time.Duration) time.Duration {
	InitConfig()
	d, err := str2duration.ParseDuration(strings.TrimSpace(viper.GetString(key)))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// DefaultAliases returns the alias list used when ALIASES is unset.
func DefaultAliases(provider string) string {
	if strings.EqualFold(strings.TrimSpace(provider), "coinpaprika") {
		return coinpaprikaAliases
	}
	return coinGeckoAliases
}

// Alias is a short name mapped to a canonical asset id.
type Alias struct {
	Name  string
	Asset string
}

// GetAliases parses "e=ethereum,m=monero" preserving order. Malformed pairs are skipped.
func GetAliases(key string) []Alias {
	InitConfig()
	return ParseAliases(viper.GetString(key))
}

func ParseAliases(raw string) []Alias {
	pairs := lo.FilterMap(strings.Split(raw, ","), func(item string, _ int) (Alias, bool) {
		name, asset, ok := strings.Cut(strings.TrimSpace(item), "=")
		name = strings.ToLower(strings.TrimSpace(name))
		asset = strings.ToLower(strings.TrimSpace(asset))
		if !ok || name == "" || asset == "" {
			return Alias{}, false
		}
		return Alias{Name: name, Asset: asset}, true
	})
	return lo.UniqBy(pairs, func(a Alias) string { return a.Name })
}
