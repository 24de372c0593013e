// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"

	"groot/internal/errors"
	"groot/internal/hasher"

	"gopkg.in/ini.v1"
)

// FileName is the config file inside the repository directory.
const FileName = "config"

type Config struct {
	Core struct {
		Hash            string // sha1, sha256, xxh3
		Compress        bool
		CompressMinSize int
	}

	Log struct {
		Level string // debug, info, warn, error
	}

	Cache struct {
		Objects int
	}

	Diff struct {
		Context int
	}
}

func Default() *Config {
	var c Config
	c.Core.Hash = hasher.DefaultAlgorithm
	c.Core.Compress = false
	c.Core.CompressMinSize = 1024
	c.Log.Level = "info"
	c.Cache.Objects = 256
	c.Diff.Context = 3
	return &c
}

// Load reads the INI file at path over the defaults. A missing file is not
// an error. GROOT_LOG_LEVEL overrides log.level.
func Load(path string) (*Config, error) {
	c := Default()

	if _, err := os.Stat(path); err == nil {
		file, err := ini.Load(path)
		if err != nil {
			return nil, errors.Malformed("config", err)
		}

		core := file.Section("core")
		c.Core.Hash = core.Key("hash").MustString(c.Core.Hash)
		c.Log.Level = file.Section("log").Key("level").MustString(c.Log.Level)
		if err := boolKey(core, "compress", &c.Core.Compress); err != nil {
			return nil, err
		}
		if err := intKey(core, "compress_min_size", &c.Core.CompressMinSize); err != nil {
			return nil, err
		}
		if err := intKey(file.Section("cache"), "objects", &c.Cache.Objects); err != nil {
			return nil, err
		}
		if err := intKey(file.Section("diff"), "context", &c.Diff.Context); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if level := os.Getenv("GROOT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// intKey parses section.name into dst when the key is present.
func intKey(section *ini.Section, name string, dst *int) error {
	if !section.HasKey(name) {
		return nil
	}
	v, err := section.Key(name).Int()
	if err != nil {
		return errors.ValidationError(fmt.Sprintf("%s.%s must be an integer, got %q", section.Name(), name, section.Key(name).String()))
	}
	*dst = v
	return nil
}

func boolKey(section *ini.Section, name string, dst *bool) error {
	if !section.HasKey(name) {
		return nil
	}
	v, err := section.Key(name).Bool()
	if err != nil {
		return errors.ValidationError(fmt.Sprintf("%s.%s must be true or false, got %q", section.Name(), name, section.Key(name).String()))
	}
	*dst = v
	return nil
}

func (c *Config) Validate() error {
	if _, err := hasher.New(c.Core.Hash); err != nil {
		return err
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.ValidationError(fmt.Sprintf("invalid log level: %s", c.Log.Level))
	}
	if c.Core.CompressMinSize < 0 {
		return errors.ValidationError("core.compress_min_size must not be negative")
	}
	if c.Cache.Objects <= 0 {
		return errors.ValidationError("cache.objects must be positive")
	}
	if c.Diff.Context < 0 {
		return errors.ValidationError("diff.context must not be negative")
	}
	return nil
}

// Save writes the whole config to path.
func (c *Config) Save(path string) error {
	file := ini.Empty()

	core := file.Section("core")
	core.Key("hash").SetValue(c.Core.Hash)
	core.Key("compress").SetValue(fmt.Sprint(c.Core.Compress))
	core.Key("compress_min_size").SetValue(fmt.Sprint(c.Core.CompressMinSize))
	file.Section("log").Key("level").SetValue(c.Log.Level)
	file.Section("cache").Key("objects").SetValue(fmt.Sprint(c.Cache.Objects))
	file.Section("diff").Key("context").SetValue(fmt.Sprint(c.Diff.Context))

	if err := file.SaveTo(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func splitKey(key string) (string, string, error) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.ValidationError(fmt.Sprintf("invalid config key: %s", key))
	}
	return parts[0], parts[1], nil
}

// Get returns the raw value stored under section.key.
func Get(path, key string) (string, error) {
	section, name, err := splitKey(key)
	if err != nil {
		return "", err
	}

	file, err := ini.Load(path)
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}

	if !file.Section(section).HasKey(name) {
		return "", errors.ValidationError(fmt.Sprintf("key not found: %s", key))
	}
	return file.Section(section).Key(name).String(), nil
}

// Set stores section.key = value. The result must still load; core.hash is
// fixed once the repository exists.
func Set(path, key, value string) error {
	section, name, err := splitKey(key)
	if err != nil {
		return err
	}
	if section == "core" && name == "hash" {
		return errors.ValidationError("core.hash cannot be changed after init")
	}

	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	file.Section(section).Key(name).SetValue(value)

	tmp := path + ".new"
	if err := file.SaveTo(tmp); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if _, err := Load(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
