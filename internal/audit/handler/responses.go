package handler

import (
	"github.com/fsuels/auditledger/internal/audit"
)

type mutationResponse struct {
	State    string `json:"state"`
	Sequence uint64 `json:"sequence,omitempty"`
	EventID  string `json:"eventId,omitempty"`
}

type historyResponse struct {
	Owner  string        `json:"owner"`
	Events []audit.Event `json:"events"`
}

// verifyRequest accepts either a raw event list or a full export
// document, whose links field bridges events the subset does not carry.
type verifyRequest struct {
	Events []audit.Event     `json:"events"`
	Links  []audit.ChainLink `json:"links"`
}

type deadLetterResponse struct {
	Records []audit.DeadLetter `json:"records"`
}

type errorResponse struct {
	Error string `json:"error"`
}
