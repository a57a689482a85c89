// Package config holds the ormtour command's settings: the database URL,
// statement echo, and the logger. Settings come from flags with
// environment fallbacks and are checked with Validate before use.
package config
