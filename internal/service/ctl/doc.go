// Package ctl implements the operator commands of fall-alarm-ctl.
//
// The commands connect to the status service of a running wristband, print
// its snapshot and ask it to cancel a running countdown.
package ctl
