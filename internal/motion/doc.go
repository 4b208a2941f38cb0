// Package motion reads recorded IMU traces.
//
// A Replay source yields one sample per Read from a CSV trace with six
// integer columns (ax, ay, az, gx, gy, gz). Lines starting with '#' are
// comments, and a header row made of the column names is skipped.
package motion
