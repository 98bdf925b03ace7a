package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

// EnvPrefix marks the environment variables that override the config file
const EnvPrefix = "GRIBSYNC_"

// LookupFunc reads one environment variable
type LookupFunc func(key string) (string, bool)

// 🌱 LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// 🔀 ApplyEnv overrides cfg with GRIBSYNC_* variables
func (cfg *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("HOST", &cfg.Remote.Host)
	str("USER", &cfg.Remote.User)
	str("PASSWORD", &cfg.Remote.Password)
	str("ROOT", &cfg.Remote.Root)
	str("RUN", &cfg.Run)
	str("DEST", &cfg.Destination)
	str("HISTORY", &cfg.History.Path)
	str("TEMP_DIR", &cfg.TempDir)
	str("TIMEOUT", &cfg.Transfer.Timeout)

	if v, ok := lookup(EnvPrefix + "TRANSFERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Errorf("parsing %sTRANSFERS: %w", EnvPrefix, err)
		}
		cfg.Transfer.Transfers = n
	}
	return nil
}

// envVariables exposes the environment to HCL as env.NAME
func envVariables() map[string]cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" || !hclIdentifier(k) {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return vars
}

func hclIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return true
}
