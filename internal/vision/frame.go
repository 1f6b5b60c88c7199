package vision

import (
	"encoding/json"
	"fmt"
	"time"

	"facegate/internal/tracker"
)

// Frame is one decoded detection frame from the provider.
type Frame struct {
	Seq          int64
	CapturedAt   time.Time
	Observations []tracker.Observation
}

type framePayload struct {
	Seq        int64         `json:"seq"`
	CapturedAt string        `json:"capturedAt"`
	Faces      []facePayload `json:"faces"`
}

type facePayload struct {
	TrackID    string    `json:"trackId"`
	PersonID   string    `json:"personId"`
	PersonName string    `json:"personName"`
	Confidence float64   `json:"confidence"`
	BBox       []float32 `json:"bbox"`
}

// decodeFrame parses one stdout line. lastSeq enforces per-process
// monotonicity; receivedAt stamps frames whose payload omits capturedAt.
// All failures wrap ErrMalformedFrame.
func decodeFrame(data []byte, lastSeq int64, receivedAt time.Time) (Frame, error) {
	var payload framePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if payload.Seq <= lastSeq {
		return Frame{}, fmt.Errorf("%w: seq %d not after %d", ErrMalformedFrame, payload.Seq, lastSeq)
	}

	capturedAt := receivedAt
	if payload.CapturedAt != "" {
		parsed, err := time.Parse(time.RFC3339Nano, payload.CapturedAt)
		if err != nil {
			return Frame{}, fmt.Errorf("%w: capturedAt: %v", ErrMalformedFrame, err)
		}
		capturedAt = parsed
	}

	frame := Frame{
		Seq:        payload.Seq,
		CapturedAt: capturedAt,
	}
	if len(payload.Faces) > 0 {
		frame.Observations = make([]tracker.Observation, 0, len(payload.Faces))
	}
	for i, face := range payload.Faces {
		if face.TrackID == "" {
			return Frame{}, fmt.Errorf("%w: face %d missing trackId", ErrMalformedFrame, i)
		}
		if face.Confidence < 0 || face.Confidence > 1 {
			return Frame{}, fmt.Errorf("%w: face %d confidence %g out of range", ErrMalformedFrame, i, face.Confidence)
		}
		obs := tracker.Observation{
			TrackID:    face.TrackID,
			PersonID:   face.PersonID,
			PersonName: face.PersonName,
			Confidence: face.Confidence,
		}
		switch len(face.BBox) {
		case 0:
		case 4:
			copy(obs.BBox[:], face.BBox)
		default:
			return Frame{}, fmt.Errorf("%w: face %d bbox has %d coordinates", ErrMalformedFrame, i, len(face.BBox))
		}
		frame.Observations = append(frame.Observations, obs)
	}
	return frame, nil
}
