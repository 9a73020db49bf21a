package messages

import (
	amessages "github.com/airenas/async-api/pkg/messages"
)

const (
	st = "QA/"
	// Process queue name - starts the workflow for one call
	Process = st + "Process"
	// StatusChange queue name - record state changed, subscribers get a push
	StatusChange = st + "StatusChange"
	// Inform queue name
	Inform = st + "Inform"
)

// CallMessage is the message passing through the callqa system
type CallMessage struct {
	amessages.QueueMessage
}

// NewCallMessage creates message for call ID
func NewCallMessage(id string) *CallMessage {
	return &CallMessage{QueueMessage: amessages.QueueMessage{ID: id}}
}
