package logx

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool   `split_words:"true" default:"false"`
	PrettyFormat bool   `split_words:"true" default:"false"`
	Service      string `split_words:"true" default:"henk-agent"`
}

// Init replaces the global logger. Callers configure it once at startup and
// every package logs through rs/zerolog/log afterwards.
func Init(conf Config) {
	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	var root zerolog.Logger
	if conf.PrettyFormat {
		root = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		root = zerolog.New(os.Stdout)
	}

	ctx := root.Level(level).With().Timestamp().Caller()
	if service := strings.TrimSpace(conf.Service); service != "" {
		ctx = ctx.Str("service", service)
	}
	log.Logger = ctx.Logger()
}
