// Package config holds the process configuration shared by the commands.
// Flags take their defaults from environment variables, which may in turn be
// seeded from a .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"incentive-token/internal/identity"
	"incentive-token/internal/ledger"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
)

// Config is the full process configuration.
type Config struct {
	Store          string  // LEDGER_STORE: memory, bolt or postgres
	BoltPath       string  // LEDGER_BOLT_PATH
	PostgresDSN    string  // POSTGRES_DSN
	ClickhouseDSN  string  // CLICKHOUSE_DSN, optional event log
	Admin          string  // LEDGER_ADMIN, initial admin and minter
	Sentinel       string  // LEDGER_SENTINEL, defaults to the admin
	TokenName      string  // LEDGER_TOKEN_NAME
	TokenSymbol    string  // LEDGER_TOKEN_SYMBOL
	TokenDecimals  int     // LEDGER_TOKEN_DECIMALS
	IdentityScheme string  // LEDGER_IDENTITY_SCHEME: opaque, base58 or ed25519
	HTTPAddr       string  // HTTP_ADDR
	MetricsAddr    string  // METRICS_ADDR, empty serves /metrics on HTTP_ADDR
	RateLimit      float64 // LEDGER_RATE_LIMIT, mutating requests/sec per caller, 0 disables
	RateBurst      int     // LEDGER_RATE_BURST

	envErrs []error
}

// RegisterFlags registers all settings on fs using environment values as
// defaults and returns the config the flags write into.
func RegisterFlags(fs *flag.FlagSet) *Config {
	c := &Config{}

	fs.StringVar(&c.Store, "store", getenv("LEDGER_STORE", StoreBolt), "State store backend (memory, bolt, postgres)")
	fs.StringVar(&c.BoltPath, "bolt-path", getenv("LEDGER_BOLT_PATH", "ledger.db"), "BoltDB file for the bolt store")
	fs.StringVar(&c.PostgresDSN, "postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	fs.StringVar(&c.ClickhouseDSN, "clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the event log (optional)")
	fs.StringVar(&c.Admin, "admin", os.Getenv("LEDGER_ADMIN"), "Initial admin account (used when the store is empty)")
	fs.StringVar(&c.Sentinel, "sentinel", os.Getenv("LEDGER_SENTINEL"), "Forbidden recipient account (default: admin)")
	fs.StringVar(&c.TokenName, "token-name", getenv("LEDGER_TOKEN_NAME", ledger.DefaultName), "Token name")
	fs.StringVar(&c.TokenSymbol, "token-symbol", getenv("LEDGER_TOKEN_SYMBOL", ledger.DefaultSymbol), "Token symbol")
	fs.IntVar(&c.TokenDecimals, "token-decimals", c.getenvInt("LEDGER_TOKEN_DECIMALS", ledger.DefaultDecimals), "Token decimals")
	fs.StringVar(&c.IdentityScheme, "identity-scheme", getenv("LEDGER_IDENTITY_SCHEME", identity.SchemeOpaque), "Account identity scheme (opaque, base58, ed25519)")
	fs.StringVar(&c.HTTPAddr, "http-addr", getenv("HTTP_ADDR", ":8080"), "API HTTP address")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", getenv("METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	fs.Float64Var(&c.RateLimit, "rate-limit", c.getenvFloat("LEDGER_RATE_LIMIT", 0), "Mutating requests per second per caller (0 disables)")
	fs.IntVar(&c.RateBurst, "rate-burst", c.getenvInt("LEDGER_RATE_BURST", 5), "Rate limiter burst per caller")

	return c
}

// Validate checks the settings required by the selected backend.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.envErrs...)

	switch c.Store {
	case StoreMemory:
	case StoreBolt:
		if c.BoltPath == "" {
			errs = append(errs, errors.New("--bolt-path is required for the bolt store"))
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("--postgres-dsn is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (memory, bolt, postgres)", c.Store))
	}

	if _, err := identity.ParseScheme(c.IdentityScheme); err != nil {
		errs = append(errs, err)
	}
	if c.TokenDecimals < 0 || c.TokenDecimals > 18 {
		errs = append(errs, fmt.Errorf("token decimals %d out of range 0..18", c.TokenDecimals))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}

	return errors.Join(errs...)
}

// Scheme returns the configured identity scheme.
func (c *Config) Scheme() (identity.Scheme, error) {
	return identity.ParseScheme(c.IdentityScheme)
}

// Genesis builds the initial ledger description. The admin is required; the
// sentinel defaults to the admin.
func (c *Config) Genesis() (ledger.Genesis, error) {
	scheme, err := c.Scheme()
	if err != nil {
		return ledger.Genesis{}, err
	}

	if c.Admin == "" {
		return ledger.Genesis{}, errors.New("--admin is required to initialize an empty store")
	}
	admin, err := scheme.Parse(c.Admin)
	if err != nil {
		return ledger.Genesis{}, fmt.Errorf("admin: %w", err)
	}

	sentinel := admin
	if c.Sentinel != "" {
		if sentinel, err = scheme.Parse(c.Sentinel); err != nil {
			return ledger.Genesis{}, fmt.Errorf("sentinel: %w", err)
		}
	}

	g := ledger.DefaultGenesis(admin)
	g.Sentinel = sentinel
	g.Name = c.TokenName
	g.Symbol = c.TokenSymbol
	g.Decimals = c.TokenDecimals
	return g, nil
}

// LoadEnvFile sets variables from a KEY=VALUE file. Existing environment
// variables are never overridden. A missing file is not an error.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read env file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(strings.TrimPrefix(parts[0], "export "))
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Don't override existing env vars
		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, value)
		}
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (c *Config) getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.envErrs = append(c.envErrs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (c *Config) getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.envErrs = append(c.envErrs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}
