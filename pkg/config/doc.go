// Package config loads heimdal's configuration.
//
// Three layers are merged with koanf, later layers winning:
//
//  1. the embedded embedded/defaults.toml
//  2. the user's config file (see paths.ConfigFilePath)
//  3. HEIMDAL_* environment variables, with "__" separating nested keys,
//     e.g. HEIMDAL_LOCK__TYPE=local or HEIMDAL_REMOTE__BRANCH=trunk
//
// The merged tree is decoded into Config with mapstructure, so durations may
// be written as Go duration strings ("300s", "24h").
package config
