package vision

import "errors"

// ErrMalformedFrame marks provider output that failed validation. Callers
// skip the frame and keep reading.
var ErrMalformedFrame = errors.New("malformed vision frame")

// ErrProviderRestarted is surfaced once per provider process exit, wrapped
// around the exit cause. The provider relaunches itself after a pause;
// callers log and keep calling Next.
var ErrProviderRestarted = errors.New("vision provider restarted")

// ErrProviderClosed is returned by Next after Close.
var ErrProviderClosed = errors.New("vision provider closed")
