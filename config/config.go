package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"pawnhub/crypto"
)

// Config captures the runtime configuration for the pawnd service.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	// AdminFeeBps is the protocol fee charged on accrued interest.
	AdminFeeBps uint64 `toml:"AdminFeeBps"`
	// FeeCollector is the bech32 identity allowed to sweep the fee treasury.
	FeeCollector string `toml:"FeeCollector"`
	// TreasuryReserve is the native balance left behind on treasury
	// withdrawals so the account survives the ledger's existence-rent rules.
	TreasuryReserve uint64 `toml:"TreasuryReserve"`
	// RateLimitRPS caps request throughput per instance. Zero disables the
	// limiter.
	RateLimitRPS float64 `toml:"RateLimitRPS"`
	// LogFile, when set, routes logs to a size-rotated file instead of stdout.
	LogFile string `toml:"LogFile"`
	// OtelEndpoint, when set, enables OTLP trace export to the given
	// collector endpoint.
	OtelEndpoint string `toml:"OtelEndpoint"`
	OtelInsecure bool   `toml:"OtelInsecure"`
}

func defaultConfig() *Config {
	return &Config{
		ListenAddress:   ":8661",
		DataDir:         "./pawnd-data",
		AdminFeeBps:     200,
		TreasuryReserve: 1_000_000,
		RateLimitRPS:    50,
	}
}

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8661"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./pawnd-data"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := defaultConfig()
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects out-of-range fee settings and malformed collector
// addresses.
func (c *Config) Validate() error {
	if c.AdminFeeBps > 10_000 {
		return fmt.Errorf("config: AdminFeeBps %d out of range", c.AdminFeeBps)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("config: RateLimitRPS must not be negative")
	}
	if strings.TrimSpace(c.FeeCollector) != "" {
		if _, err := c.CollectorAddress(); err != nil {
			return err
		}
	}
	return nil
}

// CollectorAddress decodes the configured fee collector identity.
func (c *Config) CollectorAddress() ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(c.FeeCollector)
	if trimmed == "" {
		return out, fmt.Errorf("config: FeeCollector not configured")
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return out, fmt.Errorf("config: invalid FeeCollector: %w", err)
	}
	copy(out[:], addr.Bytes())
	return out, nil
}
