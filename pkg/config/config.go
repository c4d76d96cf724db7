// Package config loads typed configuration structs from the environment.
// Each component declares a struct with envconfig tags and its own prefix;
// an optional env file (-env-file flag, or ./.env when present) is exported
// into the process environment before parsing.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	envFile  string
	flagOnce sync.Once
)

// MustNew panics on any load error. Intended for composition-root wiring
// where a missing required variable should stop the process.
func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(fmt.Sprintf("config %q: %v", prefix, err))
	}
	return conf
}

func New[T any](prefix string) (*T, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}
	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// loadEnvFile exports the file named by -env-file into the process
// environment. Without the flag, ./.env is used when it exists and a
// missing one is not an error.
func loadEnvFile() error {
	flagOnce.Do(func() {
		if flag.Lookup("env-file") == nil {
			flag.StringVar(&envFile, "env-file", "", "path to an env file exported before parsing")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})

	path := strings.TrimSpace(envFile)
	if path == "" {
		path = ".env"
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return nil
		}
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	for k, v := range viper.AllSettings() {
		if err := os.Setenv(strings.ToUpper(k), fmt.Sprint(v)); err != nil {
			return err
		}
	}
	return nil
}
