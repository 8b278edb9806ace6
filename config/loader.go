package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem is the part of the filesystem the loader touches.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

type osFileSystem struct{}

func (osFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// DefaultConfigFiles are searched in the working directory, in order, when
// no file is given on the command line.
var DefaultConfigFiles = []string{"config.toml", "config.yml", "config.yaml"}

// Files are the documents a load reads.
type Files struct {
	Config string
	// Env is the .env next to Config, empty when there is none.
	Env string
}

// Locate picks the configuration file (explicit or the first default that
// exists) and the .env beside it.
func Locate(fs FileSystem, configFile string) Files {
	files := Files{Config: configFile}
	if files.Config == "" {
		for _, name := range DefaultConfigFiles {
			if fs.Exists(name) {
				files.Config = name
				break
			}
		}
	}
	if env := filepath.Join(Root(files.Config), ".env"); fs.Exists(env) {
		files.Env = env
	}
	return files
}

type loaderOptions struct {
	fs         FileSystem
	configFile string
	sections   []string
}

// LoaderOption configures LoadConfig.
type LoaderOption func(*loaderOptions)

// WithConfigFile loads path instead of searching DefaultConfigFiles.
func WithConfigFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithSections names top-level tables whose presence is meaningful. Such a
// table decodes into a non-nil pointer even when it holds no keys.
func WithSections(keys ...string) LoaderOption {
	return func(o *loaderOptions) { o.sections = append(o.sections, keys...) }
}

// sectionMarker keeps an empty table visible to Unmarshal; viper drops
// tables without keys. Decoding ignores it.
const sectionMarker = "_present"

// LoadConfig decodes the configuration into cfg. The file is the base
// layer, then .env is loaded into the process environment, then matching
// environment variables override. A missing file is not an error; an
// unparseable one is.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	o := loaderOptions{fs: osFileSystem{}}
	for _, opt := range opts {
		opt(&o)
	}
	files := Locate(o.fs, o.configFile)

	v := viper.New()
	if files.Config != "" && o.fs.Exists(files.Config) {
		v.SetConfigFile(files.Config)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("parse config file %s: %w", files.Config, err)
		}
	}
	if files.Env != "" {
		if err := o.fs.LoadEnv(files.Env); err != nil {
			return fmt.Errorf("load env file %s: %w", files.Env, err)
		}
	}
	v.AutomaticEnv()
	bindEnv(v)
	for _, key := range o.sections {
		if v.InConfig(key) && len(v.GetStringMap(key)) == 0 {
			v.Set(key+"."+sectionMarker, true)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode %s config: %w", serviceName, err)
	}
	return nil
}

// Root returns the directory relative paths in the configuration resolve against.
func Root(configFile string) string {
	if configFile == "" {
		return "."
	}
	return filepath.Dir(configFile)
}

// Resolve returns p unchanged when absolute, otherwise joined onto root.
// An empty p stays empty.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// envOnlyKeys may come from the environment even when the file lacks them.
var envOnlyKeys = map[string]bool{
	"database_url":     true,
	"secrets":          true,
	"secrets_identity": true,
	"bad_words":        true,
}

// bindEnv copies environment variables onto the viper keys they name.
// Variables that match no known key are ignored.
func bindEnv(v *viper.Viper) {
	known := make(map[string]bool)
	for _, k := range v.AllKeys() {
		known[k] = true
	}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		for _, key := range envKeys(name) {
			if known[key] || envOnlyKeys[key] {
				v.Set(key, value)
			}
		}
	}
}

// envKeys lists the viper keys an environment variable may stand for:
//
//	IRC_WATER_COOLDOWN -> irc_water_cooldown, irc.water.cooldown,
//	                      irc.water_cooldown, irc_water.cooldown
func envKeys(name string) []string {
	flat := strings.ToLower(name)
	parts := strings.Split(flat, "_")
	keys := []string{flat}
	seen := map[string]bool{flat: true}
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	add(strings.Join(parts, "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
		add(strings.Join(parts[:i], "_") + "." + strings.Join(parts[i:], "_"))
	}
	return keys
}
