package bootstrap

import (
	"github.com/kbukum/streambot/config"
)

// Config is the constraint for application configuration types. A pointer
// to any struct that embeds config.ServiceConfig by value satisfies it
// through promoted methods, once it also provides its own Validate.
//
//	type Config struct {
//	    config.ServiceConfig `mapstructure:",squash"`
//	    DatabaseURL string `mapstructure:"database_url" validate:"required"`
//	}
//
//	app, err := bootstrap.NewApp(&cfg)
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
