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

// Package rclone builds argument vectors for the rclone transfer tool. It
// never runs anything itself.
package rclone

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultBinary is looked up on PATH
const DefaultBinary = "rclone"

// 🌐 Remote describes an on-the-fly rclone backend such as ":ftp:"
type Remote struct {
	Protocol string // backend name, e.g. "ftp"
	Host     string
	User     string
	Password string // already obscured with `rclone obscure`
}

// Flags returns the connection flags for the backend
func (r Remote) Flags() []string {
	proto := r.protocol()
	var flags []string
	if r.Host != "" {
		flags = append(flags, fmt.Sprintf("--%s-host=%s", proto, r.Host))
	}
	if r.User != "" {
		flags = append(flags, fmt.Sprintf("--%s-user=%s", proto, r.User))
	}
	if r.Password != "" {
		flags = append(flags, fmt.Sprintf("--%s-pass=%s", proto, r.Password))
	}
	return flags
}

// Path addresses dir on the backend, e.g. ":ftp:/weather/nwp"
func (r Remote) Path(dir string) string {
	return ":" + r.protocol() + ":" + dir
}

// URL is the human readable location used in log lines
func (r Remote) URL(dir string) string {
	return fmt.Sprintf("%s://%s%s", r.protocol(), r.Host, dir)
}

func (r Remote) protocol() string {
	if r.Protocol == "" {
		return "ftp"
	}
	return strings.ToLower(r.Protocol)
}

// 🔧 Tool builds rclone command lines against one remote
type Tool struct {
	Binary     string
	Remote     Remote
	ExtraFlags []string // appended to every command
}

func (t Tool) binary() string {
	if t.Binary == "" {
		return DefaultBinary
	}
	return t.Binary
}

// 📋 ListCommand returns a recursive, flat JSON listing of dir
func (t Tool) ListCommand(dir string) []string {
	argv := []string{t.binary(), "lsjson"}
	argv = append(argv, t.Remote.Flags()...)
	argv = append(argv,
		t.Remote.Path(dir),
		"--recursive",
		"--fast-list",
		"--no-mimetype",
		"--no-modtime",
		"--quiet",
	)
	return append(argv, t.ExtraFlags...)
}

// 📦 CopyCommand copies the files named in filesFrom (one name per line,
// relative to sourceDir) into destinationDir with up to transfers files in
// flight.
func (t Tool) CopyCommand(sourceDir, destinationDir, filesFrom string, transfers int) []string {
	argv := []string{t.binary(), "copy"}
	argv = append(argv, t.Remote.Flags()...)
	argv = append(argv,
		t.Remote.Path(sourceDir),
		destinationDir,
		"--files-from-raw="+filesFrom,
		"--no-traverse",
	)
	if transfers > 0 {
		argv = append(argv, "--transfers="+strconv.Itoa(transfers))
	}
	return append(argv, t.ExtraFlags...)
}

// Redact replaces password flag values so argv can be logged
func Redact(argv []string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "-pass=") {
			out[i] = arg[:strings.Index(arg, "=")+1] + "***"
			continue
		}
		out[i] = arg
	}
	return out
}
