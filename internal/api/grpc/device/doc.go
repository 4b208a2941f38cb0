// Package device implements the gRPC transport of the wristband status service.
//
// The service carries well-known protobuf types only: requests and responses
// are google.protobuf.Struct documents built by the converters in this
// package, so no generated code is needed on either side.
package device
