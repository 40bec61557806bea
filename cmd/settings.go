package main

import (
	"context"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetodo/internal/repositories"
	"github.com/desertthunder/tubetodo/internal/services"
	"github.com/desertthunder/tubetodo/internal/shared"
)

// settingNames maps CLI names to stored keys.
var settingNames = map[string]string{
	"key":    repositories.SettingAPIKey,
	"mirror": repositories.SettingMirrorBase,
}

// SettingsSetKey stores the Data API key.
func (r *Runner) SettingsSetKey(ctx context.Context, cmd *cli.Command) error {
	key := strings.TrimSpace(cmd.StringArg("key"))
	if key == "" {
		return fmt.Errorf("%w: API key", shared.ErrMissingArgument)
	}
	if err := r.openStore(); err != nil {
		return err
	}
	if err := r.settings.Set(repositories.SettingAPIKey, key); err != nil {
		return err
	}

	if !services.LooksLikeAPIKey(key) {
		r.logger.Warn("key does not look like a Data API key; playlists will resolve through the mirror")
	}
	return r.writePlain("✓ API key saved (%s)\n", maskKey(key))
}

// SettingsSetMirror stores the mirror base URL. Bare hosts get an https scheme.
func (r *Runner) SettingsSetMirror(ctx context.Context, cmd *cli.Command) error {
	base, err := normalizeMirror(cmd.StringArg("url"))
	if err != nil {
		return err
	}
	if err := r.openStore(); err != nil {
		return err
	}
	if err := r.settings.Set(repositories.SettingMirrorBase, base); err != nil {
		return err
	}
	return r.writePlain("✓ Mirror set to %s\n", base)
}

// SettingsUseBest stores the top working instance from the last saved discovery run.
func (r *Runner) SettingsUseBest(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}
	best, err := r.instances.Best()
	if err != nil {
		return err
	}
	if err := r.settings.Set(repositories.SettingMirrorBase, best.BaseURL); err != nil {
		return err
	}
	return r.writePlain("✓ Mirror set to %s (%s)\n", best.BaseURL, best.Kind)
}

type settingsView struct {
	APIKey     string   `json:"api_key"`
	MirrorBase string   `json:"mirror_base"`
	Backend    string   `json:"backend"`
	Database   string   `json:"database"`
	ConfigPath string   `json:"config_path"`
	Stored     []string `json:"stored"`
}

// SettingsShow prints the effective settings.
func (r *Runner) SettingsShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	stored, err := r.settings.All()
	if err != nil {
		return err
	}

	key, mirror := r.credentials()
	if mirror == "" {
		mirror = services.DefaultMirrorBase
	}
	view := settingsView{
		APIKey:     maskKey(key),
		MirrorBase: mirror,
		Backend:    "mirror",
		Database:   r.config.Database.Path,
		ConfigPath: r.configPath,
		Stored:     slices.Sorted(maps.Keys(stored)),
	}
	if services.LooksLikeAPIKey(key) {
		view.Backend = "youtube"
	}

	if cmd.Bool("json") {
		return r.writeJSON(view, true)
	}

	r.writePlainHeader("Settings")
	r.writePlain("API key:  %s\n", valueOr(view.APIKey, "(not set)"))
	r.writePlain("Mirror:   %s\n", view.MirrorBase)
	r.writePlain("Backend:  %s\n", view.Backend)
	r.writePlain("Database: %s\n", view.Database)
	r.writePlain("Stored:   %s\n", valueOr(strings.Join(view.Stored, ", "), "(none)"))
	return r.writePlain("Config:   %s\n", valueOr(view.ConfigPath, "(defaults)"))
}

// SettingsClear removes one stored setting ("key" or "mirror"), or both when no name is given.
func (r *Runner) SettingsClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	name := strings.TrimSpace(cmd.StringArg("name"))
	keys := []string{repositories.SettingAPIKey, repositories.SettingMirrorBase}
	if name != "" {
		key, ok := settingNames[name]
		if !ok {
			return fmt.Errorf("%w: unknown setting %q (want key or mirror)", shared.ErrInvalidArgument, name)
		}
		keys = []string{key}
	}

	for _, key := range keys {
		if err := r.settings.Delete(key); err != nil {
			return err
		}
	}
	return r.writePlain("✓ Cleared %s\n", strings.Join(keys, ", "))
}

func normalizeMirror(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", fmt.Errorf("%w: mirror URL", shared.ErrMissingArgument)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q is not an http(s) URL", shared.ErrInvalidArgument, raw)
	}
	return raw, nil
}

// maskKey keeps the first and last four characters of a credential.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
