package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Run struct {
		TimeoutMinutes int `yaml:"timeout_minutes"`
		HistoryLimit   int `yaml:"history_limit"`
	} `yaml:"run"`

	Dedup struct {
		SimilarityThreshold float64 `yaml:"similarity_threshold"`
		DateWindowHours     int     `yaml:"date_window_hours"`
		DescriptionMaxLen   int     `yaml:"description_max_len"`
	} `yaml:"dedup"`

	Scrapers struct {
		SkyQuest struct {
			Enabled bool   `yaml:"enabled"`
			BaseURL string `yaml:"base_url"`
			Cron    string `yaml:"cron"`
		} `yaml:"skyquest"`

		AeroBoard struct {
			Enabled bool   `yaml:"enabled"`
			BaseURL string `yaml:"base_url"`
			AppID   string `yaml:"app_id"`
			Country string `yaml:"country"`
			Cron    string `yaml:"cron"`
		} `yaml:"aeroboard"`

		AirMail struct {
			Enabled  bool   `yaml:"enabled"`
			IMAPHost string `yaml:"imap_host"`
			IMAPPort int    `yaml:"imap_port"`
			Username string `yaml:"username"`
			Cron     string `yaml:"cron"`
		} `yaml:"airmail"`
	} `yaml:"scrapers"`

	Maintenance struct {
		CountersCron string `yaml:"counters_cron"`
	} `yaml:"maintenance"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
