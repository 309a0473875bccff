// Package buildinfo carries build-time metadata that is not user
// configuration.
package buildinfo

import (
	"fmt"

	"github.com/google/uuid"
)

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Context holds the version stamped by the linker and an identifier for
// this process, used as Sentry release and MQTT client suffix.
type Context struct {
	Version    string
	BuildDate  string
	InstanceID string
}

// NewContext returns a Context with a fresh instance ID.
func NewContext(version, buildDate string) *Context {
	return &Context{
		Version:    version,
		BuildDate:  buildDate,
		InstanceID: uuid.NewString(),
	}
}

// GetVersion returns the version or UnknownValue.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date or UnknownValue.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// Release is the Sentry release name.
func (c *Context) Release() string {
	return "audiophile@" + c.GetVersion()
}

func (c *Context) String() string {
	return fmt.Sprintf("audiophile %s (built %s)", c.GetVersion(), c.GetBuildDate())
}
