// Package daemon assembles the wristband from its configuration and runs it:
// the control loop, the hardware or simulated collaborators, the incident
// journal and the gRPC status service.
package daemon
