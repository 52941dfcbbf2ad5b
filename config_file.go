package retdec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the optional YAML configuration file:
//
//	api_key: "..."
//	api_url: https://retdec.com/service/api
//	timeout: 30s
//	wait_interval: 2s
//	debug: false
//	proxy: http://proxy.local:3128
//	extra_headers:
//	  X-Team: reversing
type fileConfig struct {
	APIKey       string            `yaml:"api_key"`
	APIURL       string            `yaml:"api_url"`
	Timeout      string            `yaml:"timeout"`
	WaitInterval string            `yaml:"wait_interval"`
	Debug        *bool             `yaml:"debug"`
	Proxy        string            `yaml:"proxy"`
	ExtraHeaders map[string]string `yaml:"extra_headers"`
}

// loadConfigFile reads the YAML file at path. An empty path yields an empty
// configuration.
func loadConfigFile(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}
