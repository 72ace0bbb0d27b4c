package inference

import "context"

// Select implements the `auto` backend policy (spec.md §4.7): probe the
// server's /health endpoint; fall back to direct if it does not respond.
// An explicit mode ("direct" | "server") bypasses the probe.
func Select(ctx context.Context, mode string, direct Engine, server *ServerEngine) Engine {
	switch mode {
	case "direct":
		return direct
	case "server":
		return server
	default:
		if server != nil && server.Healthy(ctx) {
			return server
		}
		return direct
	}
}
