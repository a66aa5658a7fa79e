// Package config loads and saves gmi's per project settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	. "github.com/pattyshack/gmi/common"
)

const (
	ProjectFileName = ".gmi.yaml"

	LocalMode = "local"
	TcpMode   = "tcp"
)

type Breakpoint struct {
	File string
	Line int
}

func (bp Breakpoint) String() string {
	return fmt.Sprintf("%s:%d", bp.File, bp.Line)
}

func ParseBreakpoint(str string) (Breakpoint, error) {
	idx := strings.LastIndexByte(str, ':')
	if idx <= 0 {
		return Breakpoint{}, fmt.Errorf(
			"%w. breakpoint (%s) is not in file:line form",
			ErrInvalidInput,
			str)
	}

	line, err := strconv.Atoi(str[idx+1:])
	if err != nil || line <= 0 {
		return Breakpoint{}, fmt.Errorf(
			"%w. invalid breakpoint line number (%s)",
			ErrInvalidInput,
			str)
	}

	return Breakpoint{
		File: str[:idx],
		Line: line,
	}, nil
}

// Breakpoints is stored as a list of "file:line" strings.  Malformed
// entries are dropped on load.
type Breakpoints []Breakpoint

func (bps *Breakpoints) UnmarshalYAML(node *yaml.Node) error {
	entries := []string{}
	err := node.Decode(&entries)
	if err != nil {
		return err
	}

	result := Breakpoints{}
	for _, entry := range entries {
		bp, err := ParseBreakpoint(entry)
		if err != nil {
			continue
		}
		result = append(result, bp)
	}

	*bps = result
	return nil
}

func (bps Breakpoints) MarshalYAML() (interface{}, error) {
	entries := make([]string, 0, len(bps))
	for _, bp := range bps {
		entries = append(entries, bp.String())
	}
	return entries, nil
}

type Settings struct {
	GdbPath string `yaml:"gdb_path"`

	// local or tcp
	Mode string `yaml:"mode"`

	TcpHost    string `yaml:"tcp_host"`
	TcpPort    int    `yaml:"tcp_port"`
	TcpProgram string `yaml:"tcp_program,omitempty"`

	Program   string   `yaml:"program,omitempty"`
	Arguments []string `yaml:"arguments,omitempty"`

	InitCommands      []string `yaml:"init_commands,omitempty"`
	InitialBreakpoint string   `yaml:"initial_breakpoint"`

	ReloadBreakpoints bool        `yaml:"reload_breakpoints"`
	Breakpoints       Breakpoints `yaml:"breakpoints,omitempty"`

	CommandTimeout time.Duration `yaml:"command_timeout"`

	CtagsPath string `yaml:"ctags_path"`
}

func Default() Settings {
	return Settings{
		GdbPath:           "gdb",
		Mode:              LocalMode,
		TcpHost:           "localhost",
		TcpPort:           2000,
		InitialBreakpoint: "main",
		CommandTimeout:    10 * time.Second,
		CtagsPath:         "ctags",
	}
}

func (settings Settings) Validate() error {
	if settings.Mode != LocalMode && settings.Mode != TcpMode {
		return fmt.Errorf("%w. unknown mode (%s)", ErrInvalidInput, settings.Mode)
	}

	if settings.Mode == TcpMode && (settings.TcpPort <= 0 || settings.TcpPort > 65535) {
		return fmt.Errorf("%w. invalid tcp port (%d)", ErrInvalidInput, settings.TcpPort)
	}

	if settings.CommandTimeout < 0 {
		return fmt.Errorf("%w. negative command timeout", ErrInvalidInput)
	}

	return nil
}

// Load reads the settings file at path on top of the defaults.  A missing
// file yields the defaults.
func Load(path string) (Settings, error) {
	settings := Default()

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return settings, nil
	} else if err != nil {
		return settings, fmt.Errorf("failed to read %s: %w", path, err)
	}

	err = yaml.Unmarshal(content, &settings)
	if err != nil {
		return Default(), fmt.Errorf("failed to parse %s: %w", path, err)
	}

	err = settings.Validate()
	if err != nil {
		return Default(), fmt.Errorf("invalid settings in %s: %w", path, err)
	}

	return settings, nil
}

func (settings Settings) Save(path string) error {
	content, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	err = os.WriteFile(path, content, 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
