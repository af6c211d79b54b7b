// SPDX-License-Identifier: MIT
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantCode     int
		wantContains string
	}{
		{"valid", "stream:\n  buffer_count: 12\n", 0, "is valid"},
		{"out of range", "stream:\n  buffer_count: 2\n", 1, "stream.buffer_count"},
		{"unknown field", "stream:\n  buffers: 12\n", 1, "field buffers not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.content)
			var stdout, stderr bytes.Buffer
			code := runConfigCLI([]string{"validate", "-f", path}, &stdout, &stderr)
			if code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr.String())
			}
			if out := stdout.String() + stderr.String(); !strings.Contains(out, tt.wantContains) {
				t.Fatalf("output %q does not contain %q", out, tt.wantContains)
			}
		})
	}
}

func TestConfigValidate_RequiresFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := runConfigCLI([]string{"validate"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestConfigDump_YAML(t *testing.T) {
	path := writeFile(t, "stream:\n  buffer_count: 12\n")
	t.Setenv("CAMSTREAM_STREAM_TOPIC", "left_raw")

	var stdout, stderr bytes.Buffer
	if code := runConfigCLI([]string{"dump", "--file", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d (stderr: %s)", code, stderr.String())
	}

	var doc struct {
		Stream struct {
			BufferCount        int    `yaml:"buffer_count"`
			Topic              string `yaml:"topic"`
			DemandPollInterval string `yaml:"demand_poll_interval"`
		} `yaml:"stream"`
	}
	if err := yaml.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatalf("dump is not YAML: %v", err)
	}
	if doc.Stream.BufferCount != 12 || doc.Stream.Topic != "left_raw" || doc.Stream.DemandPollInterval != "50ms" {
		t.Fatalf("unexpected dump: %+v", doc.Stream)
	}
}

func TestConfigDump_JSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := runConfigCLI([]string{"dump", "--format=json"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d (stderr: %s)", code, stderr.String())
	}
	var doc map[string]map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatalf("dump is not JSON: %v", err)
	}
	if doc["camera"]["id"] != "DEV_SIM0001" {
		t.Fatalf("camera.id = %v", doc["camera"]["id"])
	}
}

func TestConfigCLI_UnknownSubcommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := runConfigCLI([]string{"explode"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if code := runConfigCLI([]string{"dump", "--format=toml"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}
