package voxview

// Config carries the editor launch settings. The core treats it as
// opaque launch data: it is validated, logged, and handed to whatever
// serves the outer surface, but no field changes registry semantics.
type Config struct {
	// IPAddress is the bind address for the viewer surface.
	IPAddress string

	// Port is the bind port for the viewer surface.
	Port int

	// Headless disables the local window.
	Headless bool

	// Streaming enables remote frame streaming.
	Streaming bool
}

// DefaultConfig returns the standard local-viewer settings.
func DefaultConfig() Config {
	return Config{
		IPAddress: "127.0.0.1",
		Port:      8080,
	}
}
