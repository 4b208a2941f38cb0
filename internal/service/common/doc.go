// Package common holds helpers shared by the daemon and the control tool.
//
// It provides a lightweight gRPC client for the status service with call
// timeouts and detection of the current system actor for the audit log.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
