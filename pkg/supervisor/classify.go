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

package supervisor

import (
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📏 Rule maps a case-insensitive substring to a log level
type Rule struct {
	Match string
	Level zerolog.Level
}

// 🚦 Classifier assigns a level to a line of free-text tool output.
//
// Rules are evaluated top-down and the first match wins. This is a heuristic:
// the transfer tool's text format is not a contract.
type Classifier struct {
	Rules   []Rule
	Default zerolog.Level
}

// DefaultClassifier mirrors the levels rclone writes into its own messages
func DefaultClassifier() Classifier {
	return Classifier{
		Rules: []Rule{
			{Match: "error", Level: zerolog.ErrorLevel},
			{Match: "failed", Level: zerolog.ErrorLevel},
			{Match: "warning", Level: zerolog.WarnLevel},
		},
		Default: zerolog.InfoLevel,
	}
}

// Classify returns the level for line
func (c Classifier) Classify(line string) zerolog.Level {
	lower := strings.ToLower(line)
	for _, r := range c.Rules {
		if r.Match == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(r.Match)) {
			return r.Level
		}
	}
	return c.Default
}

// 🏭 NewClassifier builds a classifier from (match, level name) pairs. An empty
// rule list yields DefaultClassifier.
func NewClassifier(rules []RuleSpec) (Classifier, error) {
	if len(rules) == 0 {
		return DefaultClassifier(), nil
	}
	c := Classifier{Default: zerolog.InfoLevel}
	for _, spec := range rules {
		level, err := zerolog.ParseLevel(strings.ToLower(spec.Level))
		if err != nil {
			return Classifier{}, errors.Errorf("parsing level for rule %q: %w", spec.Match, err)
		}
		if level == zerolog.NoLevel {
			return Classifier{}, errors.Errorf("rule %q has no level", spec.Match)
		}
		c.Rules = append(c.Rules, Rule{Match: spec.Match, Level: level})
	}
	return c, nil
}

// RuleSpec is the configuration form of a Rule
type RuleSpec struct {
	Match string
	Level string
}
