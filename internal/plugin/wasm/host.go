package wasm

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"jotx/internal/domain"
)

// HostModule is the namespace under which host functions are registered.
const HostModule = "jotx_v1"

// hostEnv holds the dependencies injected into host functions.
type hostEnv struct {
	sandbox *Sandbox
	logger  *slog.Logger
	config  json.RawMessage
	// result holds the last payload a guest wrote back via emit_result,
	// used for hooks (ModifyData) that need a return value from the guest.
	result []byte
}

// RegisterHostFunctions registers the jotx_v1 host module on the given runtime.
// Only capabilities allowed by the sandbox are registered.
func RegisterHostFunctions(ctx context.Context, rt wazero.Runtime, env *hostEnv) (wazero.CompiledModule, error) {
	builder := rt.NewHostModuleBuilder(HostModule)

	// log(level, ptr, len) — always allowed (CapLog).
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			level := int32(stack[0])
			ptr := uint32(stack[1])
			size := uint32(stack[2])

			msg, err := ReadString(mod, ptr, size)
			if err != nil {
				env.logger.Error("wasm log: read failed", "error", err)
				return
			}

			switch {
			case level <= 0:
				env.logger.Debug(msg)
			case level == 1:
				env.logger.Info(msg)
			case level == 2:
				env.logger.Warn(msg)
			default:
				env.logger.Error(msg)
			}
		}), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}, nil).
		Export("log")

	// get_config(key_ptr, key_len) → (ptr, len)  — always allowed (CapConfig).
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			// Ignore key_ptr/key_len for now — return full config JSON.
			data := env.config
			if data == nil {
				data = []byte("{}")
			}
			ptr, size, err := WriteBytes(mod, data)
			if err != nil {
				env.logger.Error("wasm get_config: write failed", "error", err)
				stack[0] = 0
				stack[1] = 0
				return
			}
			stack[0] = uint64(ptr)
			stack[1] = uint64(size)
		}), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}).
		Export("get_config")

	// emit_result(ptr, len) — requires CapResult. A guest writes back a
	// JSON payload the host uses as the hook's ModifyData replacement.
	if env.sandbox.AllowCapability(CapResult) {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				ptr := uint32(stack[0])
				size := uint32(stack[1])

				data, err := ReadBytes(mod, ptr, size)
				if err != nil {
					env.logger.Error("wasm emit_result: read failed", "error", err)
					return
				}
				env.result = data
			}), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil).
			Export("emit_result")
	}

	compiled, err := builder.Compile(ctx)
	if err != nil {
		return nil, domain.NewError("wasm.register_host_functions", domain.KindInvalidInput, "compile host module: "+err.Error())
	}

	return compiled, nil
}
