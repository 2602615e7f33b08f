// Package wasm provides a guest SDK for building jotx WASM plugins.
//
// This package is designed for use with TinyGo and the WASI target.
// It documents the host function bindings, memory management exports,
// and hook exports that the jotx WASM runtime expects.
//
// Usage (in a TinyGo plugin):
//
//	//go:build tinygo
//
//	package main
//
//	import "unsafe"
//
//	// Import host functions from the jotx_v1 module:
//	//go:wasmimport jotx_v1 log
//	func hostLog(level int32, ptr uintptr, size uint32)
//
//	// Export required memory management:
//	//export malloc
//	func malloc(size uint32) uintptr { ... }
//
//	//export free
//	func free(ptr uintptr, size uint32) { ... }
//
//	// Export plugin lifecycle hooks:
//	//export _init
//	func pluginInit() { ... }
//
//	//export on_command_captured
//	func onCommandCaptured(ptr uintptr, size uint32) int32 { ... }
//
// # Host Functions (jotx_v1 module)
//
// The following host functions are available for import:
//
//   - log(level int32, ptr uintptr, len uint32)
//     Write a log message. Levels: 0=debug, 1=info, 2=warn, 3=error.
//
//   - get_config(key_ptr uintptr, key_len uint32) (ptr uintptr, len uint32)
//     Read plugin configuration JSON. Returns a pointer and length in guest memory.
//
//   - emit_result(ptr uintptr, len uint32)
//     Write a JSON replacement payload back to the host, consumed when the
//     hook returns ModifyData. Requires the "result" capability.
//
// # Required Exports
//
// The guest module must export:
//
//   - malloc(size uint32) uintptr — allocate memory for host-to-guest data transfer
//   - free(ptr uintptr, size uint32) — free memory (can be no-op with GC)
//
// # Optional Exports
//
// Each hook export takes (ptr uintptr, size uint32) — the JSON-encoded
// hook payload — and returns an int32 control token (see the Token*
// constants below). A hook the guest does not export is treated as
// Continue with the payload unchanged.
//
//   - _init() — called once when the plugin is loaded
//   - _close() — called when the plugin is unloaded
//   - on_command_captured(ptr uintptr, size uint32) int32
//   - on_search_before(ptr uintptr, size uint32) int32
//   - on_search_after(ptr uintptr, size uint32) int32
//   - on_llm_before(ptr uintptr, size uint32) int32
//   - on_llm_after(ptr uintptr, size uint32) int32
//   - on_daemon_tick(ptr uintptr, size uint32) int32
//
// # Capabilities
//
// Capabilities control which host functions a plugin can access:
//
//   - "log" — always allowed
//   - "config" — always allowed
//   - "result" — must be declared in plugin.yaml's wasm.capabilities
package wasm

// LogLevel constants for the host log function.
const (
	LogDebug int32 = 0
	LogInfo  int32 = 1
	LogWarn  int32 = 2
	LogError int32 = 3
)

// Control token constants a hook export returns, mirroring
// jotx/internal/domain.ControlToken.
const (
	TokenContinue   int32 = 0
	TokenStop       int32 = 1
	TokenModifyData int32 = 2
	TokenSkip       int32 = 3
)
