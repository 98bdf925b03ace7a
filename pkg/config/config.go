// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/walteh/gribsync/pkg/plan"
	"github.com/walteh/gribsync/pkg/rclone"
	"github.com/walteh/gribsync/pkg/supervisor"
	"gitlab.com/tozd/go/errors"
)

const (
	DefaultHost        = "opendata.dwd.de"
	DefaultUser        = "anonymous"
	DefaultRoot        = "/weather/nwp/icon-eu/grib"
	DefaultRun         = "00"
	DefaultDestination = "data"
	DefaultTransfers   = 8
	DefaultTimeout     = time.Hour

	// obscured form of "guest", see `rclone obscure`
	defaultPassword = "JUznDm8DV5bQBCnXNVtpK3dN1qHB"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🌐 Remote is the server holding the model output
type Remote struct {
	Protocol string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"` // rclone obscured
	Root     string `json:"root,omitempty" yaml:"root,omitempty"`
}

// 🚚 Transfer configures the rclone invocations
type Transfer struct {
	Binary      string   `json:"binary,omitempty" yaml:"binary,omitempty"`
	Transfers   int      `json:"transfers,omitempty" yaml:"transfers,omitempty"`
	Timeout     string   `json:"timeout,omitempty" yaml:"timeout,omitempty"`           // per batch
	ListTimeout string   `json:"list_timeout,omitempty" yaml:"list_timeout,omitempty"` // for lsjson
	GracePeriod string   `json:"grace_period,omitempty" yaml:"grace_period,omitempty"`
	ExtraFlags  []string `json:"extra_flags,omitempty" yaml:"extra_flags,omitempty"`
}

// 🚫 Filter lists exclusion rules; a nil Exclude means plan.DefaultExclude
type Filter struct {
	Exclude      []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	ExcludeGlobs []string `json:"exclude_globs,omitempty" yaml:"exclude_globs,omitempty"`
}

// 📐 Range restricts a sync to batches [start, stop)
type Range struct {
	Start int `json:"start,omitempty" yaml:"start,omitempty"`
	Stop  int `json:"stop,omitempty" yaml:"stop,omitempty"`
}

// 🚦 LogRule maps rclone output containing Match to a log level
type LogRule struct {
	Match string `json:"match" yaml:"match"`
	Level string `json:"level" yaml:"level"`
}

// 📒 History configures the run ledger; an empty path disables it
type History struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// 📚 Config represents the complete configuration
type Config struct {
	Remote      Remote    `json:"remote" yaml:"remote"`
	Run         string    `json:"run,omitempty" yaml:"run,omitempty"`
	Destination string    `json:"destination,omitempty" yaml:"destination,omitempty"`
	Transfer    Transfer  `json:"transfer" yaml:"transfer"`
	Filter      Filter    `json:"filter" yaml:"filter"`
	Range       Range     `json:"range" yaml:"range"`
	LogRules    []LogRule `json:"log_rules,omitempty" yaml:"log_rules,omitempty"`
	History     History   `json:"history" yaml:"history"`
	TempDir     string    `json:"temp_dir,omitempty" yaml:"temp_dir,omitempty"`

	location    string
	timeout     time.Duration
	listTimeout time.Duration
	gracePeriod time.Duration
}

// 🏭 Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Remote: Remote{
			Protocol: "ftp",
			Host:     DefaultHost,
			User:     DefaultUser,
			Password: defaultPassword,
			Root:     DefaultRoot,
		},
		Run:         DefaultRun,
		Destination: DefaultDestination,
		Transfer: Transfer{
			Binary:    rclone.DefaultBinary,
			Transfers: DefaultTransfers,
		},
	}
}

// 🔍 Validate fills defaults and checks the configuration
func (cfg *Config) Validate() error {
	def := Default()
	if cfg.Remote.Protocol == "" {
		cfg.Remote.Protocol = def.Remote.Protocol
	}
	if cfg.Remote.Host == "" {
		cfg.Remote.Host = def.Remote.Host
		if cfg.Remote.User == "" && cfg.Remote.Password == "" {
			cfg.Remote.User = def.Remote.User
			cfg.Remote.Password = def.Remote.Password
		}
	}
	if cfg.Remote.Root == "" {
		cfg.Remote.Root = def.Remote.Root
	}
	if !strings.HasPrefix(cfg.Remote.Root, "/") {
		return errors.Errorf("remote.root must be absolute, got %q", cfg.Remote.Root)
	}
	cfg.Remote.Root = path.Clean(cfg.Remote.Root)

	if cfg.Run == "" {
		cfg.Run = def.Run
	}
	if strings.Contains(cfg.Run, "/") || cfg.Run == "." || cfg.Run == ".." {
		return errors.Errorf("run %q must be a single directory name", cfg.Run)
	}
	if cfg.Destination == "" {
		cfg.Destination = def.Destination
	}
	cfg.Destination = filepath.Clean(cfg.Destination)

	if cfg.Transfer.Binary == "" {
		cfg.Transfer.Binary = def.Transfer.Binary
	}
	if cfg.Transfer.Transfers < 0 {
		return errors.Errorf("transfer.transfers must not be negative")
	}
	if cfg.Transfer.Transfers == 0 {
		cfg.Transfer.Transfers = def.Transfer.Transfers
	}

	var err error
	if cfg.timeout, err = parseDuration("transfer.timeout", cfg.Transfer.Timeout, DefaultTimeout); err != nil {
		return err
	}
	if cfg.listTimeout, err = parseDuration("transfer.list_timeout", cfg.Transfer.ListTimeout, 0); err != nil {
		return err
	}
	if cfg.gracePeriod, err = parseDuration("transfer.grace_period", cfg.Transfer.GracePeriod, supervisor.DefaultGracePeriod); err != nil {
		return err
	}

	if _, err := plan.NewFilter(cfg.Filter.Exclude, cfg.Filter.ExcludeGlobs); err != nil {
		return errors.Errorf("validating filter: %w", err)
	}
	if err := cfg.BatchRange().Validate(); err != nil {
		return errors.Errorf("validating range: %w", err)
	}
	if _, err := supervisor.NewClassifier(cfg.ClassifierRules()); err != nil {
		return errors.Errorf("validating log_rules: %w", err)
	}
	return nil
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Errorf("parsing %s: %w", field, err)
	}
	if d < 0 {
		return 0, errors.Errorf("%s must not be negative", field)
	}
	return d, nil
}

// Timeout is the per batch limit, 0 for none
func (cfg *Config) Timeout() time.Duration { return cfg.timeout }

// ListTimeout is the listing limit, 0 for the lister's default
func (cfg *Config) ListTimeout() time.Duration { return cfg.listTimeout }

// GracePeriod bounds the wait between terminate and kill
func (cfg *Config) GracePeriod() time.Duration { return cfg.gracePeriod }

// Location is the file the config was loaded from, "" for defaults
func (cfg *Config) Location() string { return cfg.location }

// SourceDir is the remote directory of the configured run
func (cfg *Config) SourceDir() string {
	return path.Join(cfg.Remote.Root, cfg.Run)
}

// BatchRange converts the configured range
func (cfg *Config) BatchRange() plan.Range {
	return plan.Range{Start: cfg.Range.Start, Stop: cfg.Range.Stop}
}

// PlanFilter builds the exclusion filter
func (cfg *Config) PlanFilter() (plan.Filter, error) {
	exclude := cfg.Filter.Exclude
	if exclude == nil {
		exclude = plan.DefaultExclude
	}
	return plan.NewFilter(exclude, cfg.Filter.ExcludeGlobs)
}

// ClassifierRules converts log_rules for supervisor.NewClassifier
func (cfg *Config) ClassifierRules() []supervisor.RuleSpec {
	rules := make([]supervisor.RuleSpec, 0, len(cfg.LogRules))
	for _, r := range cfg.LogRules {
		rules = append(rules, supervisor.RuleSpec{Match: r.Match, Level: r.Level})
	}
	return rules
}

// Tool builds the rclone command builder for this config
func (cfg *Config) Tool() rclone.Tool {
	return rclone.Tool{
		Binary: cfg.Transfer.Binary,
		Remote: rclone.Remote{
			Protocol: cfg.Remote.Protocol,
			Host:     cfg.Remote.Host,
			User:     cfg.Remote.User,
			Password: cfg.Remote.Password,
		},
		ExtraFlags: cfg.Transfer.ExtraFlags,
	}
}

// 🔑 Hash identifies the settings that shape a run. The password is left out.
func (cfg *Config) Hash() string {
	c := *cfg
	c.Remote.Password = ""
	c.Range = Range{}
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("%s://%s%s -> %s", cfg.Remote.Protocol, cfg.Remote.Host, cfg.SourceDir(), cfg.Destination)
}
