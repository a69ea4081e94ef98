package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full runtime configuration of walletd.
type Config struct {
	API    API    `json:"api"`
	Server Server `json:"server"`
	Log    Log    `json:"log"`
	Ledger Ledger `json:"ledger"`
}

// API configures the backend identity service client.
// Durations encode as nanoseconds.
type API struct {
	URL             string        `json:"url"`
	Timeout         time.Duration `json:"timeout"`
	BreakerFailures int           `json:"breakerFailures"`
	BreakerCooldown time.Duration `json:"breakerCooldown"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string `json:"addr"`
	MetricsAddr string `json:"metricsAddr"`
}

// Log selects the slog handler and level.
type Log struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Ledger holds the ledger anchoring identifiers the backend issues against.
// The session never talks to the ledger; it reports these to consumers.
type Ledger struct {
	RPCURL        string `json:"rpcUrl"`
	PackageID     string `json:"packageId"`
	PolicyID      string `json:"policyId"`
	SchemaID      string `json:"schemaId"`
	IssuerDIDID   string `json:"issuerDidId"`
	IssuerAddress string `json:"issuerAddress"`
}

// Defaults.
var (
	DefaultAPIURL          = "http://localhost:8080"
	DefaultRequestTimeout  = 10 * time.Second
	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = 30 * time.Second
	DefaultAddr            = ":8090"
	DefaultMetricsAddr     = ":9090"
	DefaultLedgerRPCURL    = "https://fullnode.testnet.sui.io:443"
)

// Missing returns the env names of unset ledger identifiers.
func (l Ledger) Missing() []string {
	var missing []string
	for _, f := range []struct {
		env   string
		value string
	}{
		{"SUI_PACKAGE_ID", l.PackageID},
		{"SUI_POLICY_ID", l.PolicyID},
		{"SUI_SCHEMA_ID", l.SchemaID},
		{"ISSUER_DID_ID", l.IssuerDIDID},
		{"ISSUER_ADDRESS", l.IssuerAddress},
	} {
		if f.value == "" {
			missing = append(missing, f.env)
		}
	}
	return missing
}

// FromEnv builds a Config from environment variables so main stays lean.
// Unparseable values fall back to their defaults.
func FromEnv() Config {
	return Config{
		API: API{
			URL:             envOr("KYC_API_URL", DefaultAPIURL),
			Timeout:         durationOr("KYC_REQUEST_TIMEOUT", DefaultRequestTimeout),
			BreakerFailures: intOr("KYC_BREAKER_FAILURES", DefaultBreakerFailures),
			BreakerCooldown: durationOr("KYC_BREAKER_COOLDOWN", DefaultBreakerCooldown),
		},
		Server: Server{
			Addr:        envOr("WALLETD_ADDR", DefaultAddr),
			MetricsAddr: envOr("WALLETD_METRICS_ADDR", DefaultMetricsAddr),
		},
		Log: Log{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
		Ledger: Ledger{
			RPCURL:        envOr("SUI_RPC_URL", DefaultLedgerRPCURL),
			PackageID:     os.Getenv("SUI_PACKAGE_ID"),
			PolicyID:      os.Getenv("SUI_POLICY_ID"),
			SchemaID:      os.Getenv("SUI_SCHEMA_ID"),
			IssuerDIDID:   os.Getenv("ISSUER_DID_ID"),
			IssuerAddress: os.Getenv("ISSUER_ADDRESS"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
