package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	envFilePath string
	flagOnce    sync.Once
)

// New loads the process environment into a prefixed struct. An optional
// dotenv file is applied first: the -env flag wins, then the ENV_FILE
// variable, then ./.env when present. Variables already set in the
// environment are never overwritten by the file.
func New[T any](prefix string) (*T, error) {
	if path, required := envFileSource(); path != "" {
		if err := exportDotenv(path, required); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// envFileSource picks the dotenv file to load. The boolean reports whether a
// missing file is an error: explicit selections are, the .env default is not.
func envFileSource() (string, bool) {
	flagOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFilePath, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})
	if path := strings.TrimSpace(envFilePath); path != "" {
		return path, true
	}
	if path := strings.TrimSpace(os.Getenv("ENV_FILE")); path != "" {
		return path, true
	}
	return ".env", false
}

func exportDotenv(path string, required bool) error {
	info, err := os.Stat(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		if required {
			return fmt.Errorf("%s is a directory", path)
		}
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return err
	}

	for key, value := range viper.AllSettings() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, fmt.Sprint(value)); err != nil {
			return err
		}
	}
	return nil
}
