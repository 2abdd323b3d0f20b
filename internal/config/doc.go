// Package config loads labscrub configuration from local and global YAML
// files. It is internal; CLI code applies precedence (flag, then local file,
// then global file) and maps the result into component configuration.
package config
