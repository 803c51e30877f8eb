// Package config loads the runtime configuration that wires a Module to a
// policy file, a database backend, and logging: a TOML file, then
// BORUNA__-prefixed environment variables, then CLI flags, lowest to
// highest precedence.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// DB configures the DbQuery capability's host backend.
type DB struct {
	Driver string `toml:"driver"` // "sqlite3" (default) or "mysql"
	DSN    string `toml:"dsn"`
}

// Runtime is the resolved configuration for the boruna CLI and the
// components it wires together.
type Runtime struct {
	PolicyFile     string `toml:"policy_file"`
	MaxRounds      int    `toml:"max_rounds"`
	MaxCycles      int    `toml:"max_cycles"`
	BudgetPerRound int    `toml:"budget_per_round"`
	MaxStepsPerRun int    `toml:"max_steps_per_run"`
	LogLevel       string `toml:"log_level"`
	LogFile        string `toml:"log_file"`
	DB             DB     `toml:"db"`
	LlmEndpoint    string `toml:"llm_endpoint"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Runtime {
	return Runtime{
		MaxRounds:      10_000,
		MaxCycles:      10_000,
		BudgetPerRound: 10_000,
		MaxStepsPerRun: 1_000_000,
		LogLevel:       "info",
		DB: DB{
			Driver: "sqlite3",
			DSN:    ":memory:",
		},
	}
}

// Load resolves a Runtime from, in increasing precedence: a TOML file at
// rootPath/boruna.toml (if present), BORUNA__-prefixed environment
// variables, and finally the already-parsed CLI flags in overrides.
func Load(rootPath string, overrides map[string]string) Runtime {
	cfg := Default()

	if rootPath != "" {
		path := filepath.Join(rootPath, "boruna.toml")
		if _, err := os.Stat(path); err == nil {
			_, _ = toml.DecodeFile(path, &cfg)
		}
	}

	values := map[string]string{}
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "BORUNA__") {
			continue
		}
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key := strings.TrimPrefix(pair[0], "BORUNA__")
		key = strings.ToLower(strings.ReplaceAll(key, "__", "."))
		values[key] = pair[1]
	}
	for k, v := range overrides {
		values[k] = v
	}

	apply(&cfg, values)
	return cfg
}

func apply(cfg *Runtime, values map[string]string) {
	for key, raw := range values {
		switch key {
		case "policy_file":
			cfg.PolicyFile = raw
		case "max_rounds":
			if n, err := strconv.Atoi(raw); err == nil {
				cfg.MaxRounds = n
			}
		case "max_cycles":
			if n, err := strconv.Atoi(raw); err == nil {
				cfg.MaxCycles = n
			}
		case "budget_per_round":
			if n, err := strconv.Atoi(raw); err == nil {
				cfg.BudgetPerRound = n
			}
		case "max_steps_per_run":
			if n, err := strconv.Atoi(raw); err == nil {
				cfg.MaxStepsPerRun = n
			}
		case "log_level":
			cfg.LogLevel = raw
		case "log_file":
			cfg.LogFile = raw
		case "db.driver":
			cfg.DB.Driver = raw
		case "db.dsn":
			cfg.DB.DSN = raw
		case "llm_endpoint":
			cfg.LlmEndpoint = raw
		}
	}
}
