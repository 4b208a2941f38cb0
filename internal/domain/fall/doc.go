// Package fall contains the core domain types of the fall alarm.
//
// It defines the motion sample read from the IMU, the fall lifecycle State,
// the tunable Thresholds that classify motion, the feedback and alert intents
// the detector emits, and the Recipient cell shared between the detector and
// the inbound command processor.
package fall
