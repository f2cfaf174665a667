// Package fscontext provides the read-only configuration view handed to
// user modules.
package fscontext

import (
	configpkg "github.com/funcstream/funcstream/internal/runtime/config"
)

// Context exposes the immutable runtime configuration to module code. It is
// safe for concurrent use and carries no mutable state.
type Context struct {
	conf *configpkg.Config
}

// New wraps the supplied configuration.
func New(conf *configpkg.Config) *Context {
	if conf == nil {
		panic("funcstream: config cannot be nil")
	}
	return &Context{conf: conf}
}

// GetConfig looks up a custom configuration key. The second return value
// distinguishes an unset key from an empty string.
func (c *Context) GetConfig(key string) (string, bool) {
	value, ok := c.conf.Custom[key]
	return value, ok
}

// GetConfigs returns a snapshot of all custom configuration. Mutating the
// returned map does not affect the context.
func (c *Context) GetConfigs() map[string]string {
	snapshot := make(map[string]string, len(c.conf.Custom))
	for k, v := range c.conf.Custom {
		snapshot[k] = v
	}
	return snapshot
}

// Module returns the name of the active module.
func (c *Context) Module() string {
	return c.conf.Module
}
