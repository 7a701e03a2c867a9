package config

import (
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() {
	c.Paths.StagingDir = expandHome(c.Paths.StagingDir)
	c.Paths.OutputDir = expandHome(c.Paths.OutputDir)
	c.Paths.ScanDir = expandHome(c.Paths.ScanDir)
	c.Paths.LogDir = expandHome(c.Paths.LogDir)
	c.Paths.TemplateWAV = expandHome(c.Paths.TemplateWAV)
	c.Publish.ArchiveDir = expandHome(c.Publish.ArchiveDir)

	c.Receiver.Mode = strings.ToLower(strings.TrimSpace(c.Receiver.Mode))
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	seeds := c.Receiver.SeedHosts[:0]
	for _, host := range c.Receiver.SeedHosts {
		if trimmed := strings.TrimSpace(host); trimmed != "" {
			seeds = append(seeds, trimmed)
		}
	}
	c.Receiver.SeedHosts = seeds
}

func expandHome(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
