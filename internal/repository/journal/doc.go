// Package journal records fall incidents.
//
// The FileRepository appends one protobuf-JSON object per line so the file
// stays greppable and survives a crash mid-write with at most one torn line.
// Only incidents are written; device settings are never persisted.
package journal
