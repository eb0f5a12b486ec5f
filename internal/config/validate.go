package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate fills defaults and returns a normalized copy plus the
// validation result.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	if out.App.Port == 0 {
		out.App.Port = 38520
	}

	if out.Run.TimeoutMinutes < 0 {
		res.addErr("run.timeout_minutes must be >= 0")
	}
	if out.Run.TimeoutMinutes == 0 {
		out.Run.TimeoutMinutes = 30
	}
	if out.Run.HistoryLimit <= 0 {
		out.Run.HistoryLimit = 100
	}

	// dedup tunables
	if out.Dedup.SimilarityThreshold == 0 {
		out.Dedup.SimilarityThreshold = 0.85
	}
	if out.Dedup.SimilarityThreshold < 0 || out.Dedup.SimilarityThreshold > 1 {
		res.addErr("dedup.similarity_threshold must be in (0, 1], got %v", out.Dedup.SimilarityThreshold)
	} else if out.Dedup.SimilarityThreshold < 0.5 {
		res.addWarn("dedup.similarity_threshold %.2f is very permissive; distinct listings may be merged.", out.Dedup.SimilarityThreshold)
	}
	if out.Dedup.DateWindowHours == 0 {
		out.Dedup.DateWindowHours = 24
	}
	if out.Dedup.DateWindowHours < 0 {
		res.addErr("dedup.date_window_hours must be >= 0")
	}
	if out.Dedup.DescriptionMaxLen == 0 {
		out.Dedup.DescriptionMaxLen = 10000
	}

	// scraper sanity
	if out.Scrapers.SkyQuest.Enabled && strings.TrimSpace(out.Scrapers.SkyQuest.BaseURL) == "" {
		res.addErr("scrapers.skyquest.base_url is required when skyquest is enabled")
	}
	if out.Scrapers.AeroBoard.Enabled {
		if strings.TrimSpace(out.Scrapers.AeroBoard.BaseURL) == "" {
			res.addErr("scrapers.aeroboard.base_url is required when aeroboard is enabled")
		}
		if strings.TrimSpace(out.Scrapers.AeroBoard.AppID) == "" {
			res.addErr("scrapers.aeroboard.app_id is required when aeroboard is enabled (key lives in the OS keychain)")
		}
	}
	if out.Scrapers.AirMail.Enabled {
		if strings.TrimSpace(out.Scrapers.AirMail.IMAPHost) == "" {
			res.addErr("scrapers.airmail.imap_host is required when airmail is enabled")
		}
		if out.Scrapers.AirMail.IMAPPort == 0 {
			res.addErr("scrapers.airmail.imap_port is required when airmail is enabled")
		}
		if strings.TrimSpace(out.Scrapers.AirMail.Username) == "" {
			res.addErr("scrapers.airmail.username is required when airmail is enabled")
		}
	}

	if !out.Scrapers.SkyQuest.Enabled && !out.Scrapers.AeroBoard.Enabled && !out.Scrapers.AirMail.Enabled {
		res.addWarn("no scrapers enabled; runs can only be started if adapters are registered elsewhere.")
	}

	return out, res
}
