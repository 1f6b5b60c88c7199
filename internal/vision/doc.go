// Package vision defines the contract between the face-recognition provider
// process and the attendance pipeline. The provider owns the camera,
// detection, and embedding; this package launches it, decodes the
// newline-delimited JSON frames it writes to stdout, and hands validated
// frames to the coordinator. Malformed lines are reported as skippable
// errors so one bad frame never stalls the pipeline.
package vision
