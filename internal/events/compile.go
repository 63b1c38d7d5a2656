package events

import "time"

// CompileStart is emitted before an operation document is assembled.
type CompileStart struct {
	OperationName string
	OperationType string
	TypeName      string
	Variant       string
}

// CompileFinish is emitted after an operation document is assembled or the
// attempt failed.
type CompileFinish struct {
	OperationName string
	OperationType string
	TypeName      string
	Variant       string
	Fragments     int
	Err           error
	Duration      time.Duration
}
