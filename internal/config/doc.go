// Package config provides configuration management for guildwatch.
//
// Configuration comes from three sources, in increasing precedence:
// built-in defaults, the optional .guildwatch YAML file (current
// directory, then home directory), and CLI flags. The resulting Config
// struct is passed through the application via dependency injection;
// there is no ambient or global configuration state, so tests can run
// multiple isolated check pipelines against mock endpoints.
package config
