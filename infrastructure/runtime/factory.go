package runtime

import (
	"github.com/vesla0x1/multiruntime/application/ports"
	"github.com/vesla0x1/multiruntime/infrastructure/config"
	"github.com/vesla0x1/multiruntime/utils"
)

// genericServerAliases are override values that name the generic server.
var genericServerAliases = map[ports.RuntimeKind]bool{
	"nodejs": true,
	"node":   true,
	"server": true,
}

// Resolve maps a detected kind onto one the factory can build. Aliases and
// unknown values resolve to generic-server.
func Resolve(kind ports.RuntimeKind) ports.RuntimeKind {
	switch kind {
	case ports.RuntimeLambda, ports.RuntimeCloudflare, ports.RuntimeDeno,
		ports.RuntimeFargate, ports.RuntimeGenericServer:
		return kind
	default:
		return ports.RuntimeGenericServer
	}
}

// Create creates the adapter for kind. Deno runs invocation-style on the
// hosted platform and as a local server otherwise.
func Create(kind ports.RuntimeKind, cfg AdapterConfig) ports.Adapter {
	resolved := Resolve(kind)
	if resolved != kind && !genericServerAliases[kind] && cfg.Logger != nil {
		cfg.Logger.Warn("Unknown runtime, falling back to generic server",
			"runtime", kind.String(),
			"fallback", resolved.String())
	}

	switch resolved {
	case ports.RuntimeLambda:
		return NewLambdaAdapter(cfg)
	case ports.RuntimeCloudflare:
		return NewCloudflareAdapter(cfg)
	case ports.RuntimeDeno:
		if isDenoDeployed(sourceOf(cfg)) {
			return NewDenoDeployAdapter(cfg)
		}
		return NewServerAdapter(ports.RuntimeDeno, cfg)
	case ports.RuntimeFargate:
		return NewServerAdapter(ports.RuntimeFargate, cfg)
	default:
		return NewServerAdapter(ports.RuntimeGenericServer, cfg)
	}
}

func sourceOf(cfg AdapterConfig) config.Source {
	if cfg.Source == nil {
		return utils.OSEnv{}
	}
	return cfg.Source
}
