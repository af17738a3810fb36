// Package config loads the thin JSON configuration files the Manager
// and Agent binaries accept, overridable by cobra flags at the
// cmd/orbit layer. There is no schema validation or hot reload here;
// this package stays deliberately small.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ManagerConfig configures a Manager process.
type ManagerConfig struct {
	APIAddr string `json:"api_addr"`
	DBPath  string `json:"db_path"`
	LogJSON bool   `json:"log_json"`
}

// DefaultManagerConfig returns the Manager's out-of-the-box settings.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		APIAddr: "127.0.0.1:8080",
		DBPath:  "./orbit-manager-data",
	}
}

// AgentConfig configures an Agent process.
type AgentConfig struct {
	ManagerURL       string `json:"manager_url"`
	ListenAddr       string `json:"listen_addr"`
	Hostname         string `json:"hostname"`
	NetworkInterface string `json:"network_interface"`
	DataDir          string `json:"data_dir"`
	Port             int    `json:"port"`
	IntervalSec      int    `json:"interval_sec"`
	LogJSON          bool   `json:"log_json"`
}

// DefaultAgentConfig returns the Agent's out-of-the-box settings.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		ManagerURL:  "http://127.0.0.1:8080",
		ListenAddr:  "127.0.0.1:8090",
		DataDir:     "./orbit-agent-data",
		Port:        8090,
		IntervalSec: 5,
	}
}

// LoadManagerConfig reads a JSON file into DefaultManagerConfig's
// settings, leaving defaults in place for any field the file omits. An
// empty path is not an error: it just means "use the defaults."
func LoadManagerConfig(path string) (ManagerConfig, error) {
	cfg := DefaultManagerConfig()
	if path == "" {
		return cfg, nil
	}
	if err := loadJSON(path, &cfg); err != nil {
		return ManagerConfig{}, err
	}
	return cfg, nil
}

// LoadAgentConfig reads a JSON file into DefaultAgentConfig's settings.
func LoadAgentConfig(path string) (AgentConfig, error) {
	cfg := DefaultAgentConfig()
	if path == "" {
		return cfg, nil
	}
	if err := loadJSON(path, &cfg); err != nil {
		return AgentConfig{}, err
	}
	return cfg, nil
}

func loadJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
