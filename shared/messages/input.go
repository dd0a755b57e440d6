package messages

// PlayerInput is sent from participant to authority each tick with the movement
// axes read from the local input device.
type PlayerInput struct {
	Sequence   uint32  // Incrementing ID for reconciliation
	Horizontal float64 // -1..1
	Forward    float64 // -1..1
	Timestamp  int64   // Client timestamp (Unix ms)
}
