// Package api provides an HTTP API server for browsing save files and
// searching story memories.
package api

import "github.com/mythos-rpg/mythos/pkg/vector"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Memory enables the search endpoint when set. Without it the endpoint
	// reports search as unconfigured.
	Memory *vector.Memory
}
