// Package common holds process-wide constants and logger construction shared by
// all binaries and packages of the module.
package common

// Version is overridden at build time with -ldflags "-X .../common.Version=...".
var Version = "dev"

// PackageName namespaces the build_info gauge of the metrics server.
const PackageName = "nildb_agentkit"
