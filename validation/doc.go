// Package validation checks configuration structs through struct tags and
// user input through a small programmatic checker.
//
// # Struct Tag Validation
//
//	type Config struct {
//	    DatabaseURL string `mapstructure:"database_url" validate:"required"`
//	}
//	err := validation.Config(cfg) // CONFIGURATION_ERROR naming database_url
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("name", name).MaxLength("name", name, 32)
//	if err := v.Validate(); err != nil { ... }
package validation
