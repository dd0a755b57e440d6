package network

import (
	"time"

	"github.com/MekelWibi/SumoProjectKP/shared/gamemath"
	"github.com/MekelWibi/SumoProjectKP/shared/messages"
)

const predictionBufferSize = 64

// InputRecord stores an input, the time step it was applied over, and the
// predicted avatar position after applying it.
type InputRecord struct {
	Input     messages.PlayerInput
	Step      time.Duration
	Predicted gamemath.Vec3
}

// PredictionBuffer is a ring buffer of recent inputs and their predicted
// outcomes, used to reconcile the local avatar with authority snapshots.
type PredictionBuffer struct {
	history [predictionBufferSize]InputRecord
	nextSeq uint32
}

// Store saves an input applied over step and the resulting predicted position.
func (pb *PredictionBuffer) Store(input messages.PlayerInput, step time.Duration, predicted gamemath.Vec3) {
	idx := input.Sequence % predictionBufferSize
	pb.history[idx] = InputRecord{
		Input:     input,
		Step:      step,
		Predicted: predicted,
	}
	pb.nextSeq = input.Sequence + 1
}

// Get retrieves a stored record by sequence number. Returns false if not found
// or if the slot has been overwritten.
func (pb *PredictionBuffer) Get(seq uint32) (InputRecord, bool) {
	idx := seq % predictionBufferSize
	record := pb.history[idx]
	if record.Input.Sequence != seq {
		return InputRecord{}, false
	}
	return record, true
}

// NextSeq returns the next expected sequence number.
func (pb *PredictionBuffer) NextSeq() uint32 {
	return pb.nextSeq
}

// Unacknowledged returns the stored inputs the authority has not confirmed
// yet: sequences after lastAcked and before NextSeq.
func (pb *PredictionBuffer) Unacknowledged(lastAcked uint32) []InputRecord {
	var results []InputRecord
	for seq := lastAcked + 1; seq < pb.nextSeq; seq++ {
		if record, ok := pb.Get(seq); ok {
			results = append(results, record)
		}
	}
	return results
}

// PredictionError is the ground distance between the predicted and the
// authoritative position for a sequence. Unknown sequences report 0.
func (pb *PredictionBuffer) PredictionError(seq uint32, server gamemath.Vec3) float64 {
	record, ok := pb.Get(seq)
	if !ok {
		return 0
	}
	return record.Predicted.Sub(server).Len()
}
