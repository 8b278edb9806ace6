// Package config loads service configuration with viper.
//
// The document format follows the file extension (TOML, YAML or JSON).
// Environment variables, and a .env file next to the configuration, override
// file values: DATABASE_URL sets database_url, IRC_CHANNEL sets irc.channel.
//
// Paths inside the document are relative to the directory that holds the
// configuration file; Resolve turns them into absolute paths.
package config
