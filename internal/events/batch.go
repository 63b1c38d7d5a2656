package events

import "time"

// BatchStart is emitted when the batch driver begins a manifest.
type BatchStart struct {
	Manifest   string
	Operations int
}

// BatchFinish is emitted after every operation of a manifest was attempted.
type BatchFinish struct {
	Manifest  string
	Succeeded int
	Failed    int
	Duration  time.Duration
}
