package muxhandlers

import (
	"os"

	"github.com/vitalvas/yoke/mux"
)

// ServerConfig configures the Server middleware behaviour.
type ServerConfig struct {
	// Hostname is the value written to the X-Server-Hostname response
	// header. Resolution order: Hostname field, then HostnameEnv
	// environment variable, then os.Hostname.
	Hostname string

	// HostnameEnv is a list of environment variable names checked in
	// order (e.g. ["POD_NAME", "HOSTNAME"]). The first non-empty
	// value is used. Only consulted when Hostname is empty.
	HostnameEnv []string

	// Server, when set, is sent as the Server response header.
	Server string
}

// ServerMiddleware returns a handler that sets server identification
// response headers. The hostname is resolved once when the handler is
// created. It returns an error if the hostname cannot be determined.
func ServerMiddleware(cfg ServerConfig) (mux.Handler, error) {
	hostname := cfg.Hostname

	if hostname == "" {
		for _, env := range cfg.HostnameEnv {
			if v, ok := os.LookupEnv(env); ok && v != "" {
				hostname = v
				break
			}
		}
	}

	if hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, err
		}

		hostname = h
	}

	server := cfg.Server

	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		c.Header().Set("X-Server-Hostname", hostname)
		if server != "" {
			c.Header().Set("Server", server)
		}
		next(nil)
	}), nil
}
