// Package version exposes build metadata of the fall-alarm binaries.
//
// Version, Commit and BuildTime are injected with -ldflags -X; a plain
// `go build` falls back to the module version and VCS data recorded by the
// Go toolchain.
package version
