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
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

// 📝 Parse parses the config from HCL
//
//	run         = "06"
//	destination = "/data/icon-eu"
//
//	remote {
//	  host = "opendata.dwd.de"
//	  root = "/weather/nwp/icon-eu/grib"
//	}
//
//	log_rule {
//	  match = "not deleting"
//	  level = "debug"
//	}
//
// The evaluation context exposes env.NAME for every environment variable.
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	return parseHCL(data, "config.hcl", envVariables())
}

func parseHCL(data []byte, filename string, env map[string]cty.Value) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
	}

	// Define HCL schema
	type hclConfig struct {
		Remote *struct {
			Protocol string `hcl:"protocol,optional"`
			Host     string `hcl:"host,optional"`
			User     string `hcl:"user,optional"`
			Password string `hcl:"password,optional"`
			Root     string `hcl:"root,optional"`
		} `hcl:"remote,block"`
		Run         string `hcl:"run,optional"`
		Destination string `hcl:"destination,optional"`
		Transfer    *struct {
			Binary      string   `hcl:"binary,optional"`
			Transfers   int      `hcl:"transfers,optional"`
			Timeout     string   `hcl:"timeout,optional"`
			ListTimeout string   `hcl:"list_timeout,optional"`
			GracePeriod string   `hcl:"grace_period,optional"`
			ExtraFlags  []string `hcl:"extra_flags,optional"`
		} `hcl:"transfer,block"`
		Filter *struct {
			Exclude      *[]string `hcl:"exclude,optional"`
			ExcludeGlobs []string  `hcl:"exclude_globs,optional"`
		} `hcl:"filter,block"`
		Range *struct {
			Start int `hcl:"start,optional"`
			Stop  int `hcl:"stop,optional"`
		} `hcl:"range,block"`
		LogRules []struct {
			Match string `hcl:"match"`
			Level string `hcl:"level"`
		} `hcl:"log_rule,block"`
		History *struct {
			Path string `hcl:"path,optional"`
		} `hcl:"history,block"`
		TempDir string `hcl:"temp_dir,optional"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	cfg := &Config{
		Run:         hclCfg.Run,
		Destination: hclCfg.Destination,
		TempDir:     hclCfg.TempDir,
	}
	if r := hclCfg.Remote; r != nil {
		cfg.Remote = Remote{Protocol: r.Protocol, Host: r.Host, User: r.User, Password: r.Password, Root: r.Root}
	}
	if t := hclCfg.Transfer; t != nil {
		cfg.Transfer = Transfer{
			Binary:      t.Binary,
			Transfers:   t.Transfers,
			Timeout:     t.Timeout,
			ListTimeout: t.ListTimeout,
			GracePeriod: t.GracePeriod,
			ExtraFlags:  t.ExtraFlags,
		}
	}
	if f := hclCfg.Filter; f != nil {
		if f.Exclude != nil {
			cfg.Filter.Exclude = append([]string{}, (*f.Exclude)...)
		}
		cfg.Filter.ExcludeGlobs = f.ExcludeGlobs
	}
	if r := hclCfg.Range; r != nil {
		cfg.Range = Range{Start: r.Start, Stop: r.Stop}
	}
	for _, r := range hclCfg.LogRules {
		cfg.LogRules = append(cfg.LogRules, LogRule{Match: r.Match, Level: r.Level})
	}
	if h := hclCfg.History; h != nil {
		cfg.History.Path = h.Path
	}

	return cfg, nil
}
