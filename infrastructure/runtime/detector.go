package runtime

import (
	"strings"

	"github.com/vesla0x1/multiruntime/application/ports"
	"github.com/vesla0x1/multiruntime/infrastructure/config"
	"github.com/vesla0x1/multiruntime/utils"
)

// DetectRuntime detects the runtime kind from the process environment.
func DetectRuntime() ports.RuntimeKind {
	return Detect(utils.OSEnv{})
}

// Detect decides which hosting model is active. An explicit RUNTIME value
// other than "auto" wins and is returned as given, lower-cased, even when it
// is not a known kind; the factory resolves unknown values. Otherwise the
// platform markers are checked in a fixed order.
func Detect(src config.Source) ports.RuntimeKind {
	if override := strings.ToLower(strings.TrimSpace(utils.GetEnv(src, config.KeyRuntime, ""))); override != "" && override != config.RuntimeAuto {
		return ports.RuntimeKind(override)
	}

	if utils.Has(src, config.KeyLambdaFunctionName) {
		return ports.RuntimeLambda
	}

	if hasEdgeIsolateMarker(src) {
		return ports.RuntimeDeno
	}

	if hasEdgeNetworkMarker(src) && isProduction(src) {
		return ports.RuntimeCloudflare
	}

	return ports.RuntimeGenericServer
}

// Info returns diagnostics about the detected runtime. It never fails;
// values that are not available are left out.
func Info(src config.Source) map[string]string {
	kind := Detect(src)
	info := map[string]string{
		"detected_runtime": kind.String(),
	}

	add := func(name, key string) {
		if v := utils.GetEnv(src, key, ""); v != "" {
			info[name] = v
		}
	}

	switch kind {
	case ports.RuntimeLambda:
		add("function_name", config.KeyLambdaFunctionName)
		add("function_version", config.KeyLambdaFunctionVersion)
		add("region", config.KeyRegion)
	case ports.RuntimeDeno:
		add("deno_version", config.KeyDenoVersion)
		add("deployment_id", config.KeyDenoDeploymentID)
		add("region", config.KeyDenoRegion)
	}

	return info
}

func hasEdgeIsolateMarker(src config.Source) bool {
	return utils.Has(src, config.KeyDenoDeploymentID) ||
		utils.Has(src, config.KeyDenoRegion) ||
		utils.Has(src, config.KeyDenoVersion)
}

func hasEdgeNetworkMarker(src config.Source) bool {
	return utils.Has(src, config.KeyCloudflarePages) ||
		utils.Has(src, config.KeyCloudflareWorker) ||
		utils.Has(src, config.KeyCloudflareAccount)
}

func isProduction(src config.Source) bool {
	return strings.EqualFold(utils.GetEnv(src, config.KeyEnvironment, ""), config.EnvProduction)
}

// isDenoDeployed reports whether the edge isolate runs on the hosted
// platform rather than a local development process.
func isDenoDeployed(src config.Source) bool {
	return utils.Has(src, config.KeyDenoDeploymentID)
}
