// Package config loads the enpeakd configuration from a JSON or YAML file,
// applies environment overrides and fills defaults relative to the file.
package config
