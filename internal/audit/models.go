// Package audit defines the immutable, hash-chained audit event model.
//
// Events are emitted once per detected entity mutation, fully constructed
// in memory, persisted once, and never updated or deleted. Each event's
// hash input includes the previous event's hash so that retroactive edits
// are detectable by recomputing the chain.
package audit

import "time"

// GenesisHash is the previousHash of the first event in a chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// EventType is the closed set of audited occurrence kinds.
type EventType string

const (
	EventDocumentCreated EventType = "document_created"
	EventDocumentUpdated EventType = "document_updated"
	EventDocumentDeleted EventType = "document_deleted"
	EventUserAction      EventType = "user_action"
	EventSystemChange    EventType = "system_change"
	EventPolicyUpdate    EventType = "policy_update"
	EventCompliance      EventType = "compliance_event"
)

// ChangeType describes the mutation that triggered an event.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeKind classifies a single field-level difference.
type ChangeKind string

const (
	KindAddition     ChangeKind = "addition"
	KindModification ChangeKind = "modification"
	KindDeletion     ChangeKind = "deletion"
)

// Classification is the data-sensitivity label assigned to an event payload.
type Classification string

const (
	ClassPublic       Classification = "public"
	ClassInternal     Classification = "internal"
	ClassConfidential Classification = "confidential"
	ClassRestricted   Classification = "restricted"
)

// Framework tags the compliance regimes an event is subject to.
type Framework string

const (
	FrameworkSOX   Framework = "SOX"
	FrameworkGDPR  Framework = "GDPR"
	FrameworkPCI   Framework = "PCI_DSS"
	FrameworkHIPAA Framework = "HIPAA"
)

// FieldChange is one field-level before/after difference.
type FieldChange struct {
	Field      string     `json:"field"`
	OldValue   any        `json:"oldValue,omitempty"`
	NewValue   any        `json:"newValue,omitempty"`
	ChangeType ChangeKind `json:"changeType"`
	DiffText   string     `json:"diffText,omitempty"`
}

// Source identifies the mutated entity.
type Source struct {
	Collection string `json:"collection"`
	EntityID   string `json:"entityId"`
	Path       string `json:"path"`
}

// Change holds the redacted before/after snapshots and the computed diff.
type Change struct {
	Type   ChangeType     `json:"type"`
	Before map[string]any `json:"before,omitempty"`
	After  map[string]any `json:"after,omitempty"`
	Diff   []FieldChange  `json:"diff"`
}

// Actor describes who performed the mutation, when known.
type Actor struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	// Device is a human-readable rendering of UserAgent ("Chrome on Mac OS X").
	Device string `json:"device,omitempty"`
}

// Technical captures invocation metadata for the pipeline run that
// produced the event.
type Technical struct {
	Service        string    `json:"service"`
	Version        string    `json:"version"`
	ExecutionID    string    `json:"executionId"`
	Region         string    `json:"region"`
	Timestamp      time.Time `json:"timestamp"`
	BeforeChecksum string    `json:"beforeChecksum,omitempty"`
	AfterChecksum  string    `json:"afterChecksum,omitempty"`
}

// Compliance records the regulatory posture attached at creation time.
type Compliance struct {
	Frameworks         []Framework    `json:"frameworks"`
	DataClassification Classification `json:"dataClassification"`
	RetentionDays      int            `json:"retentionPeriodDays"`
	LegalBasis         string         `json:"legalBasis,omitempty"`
}

// Integrity holds the cryptographic artifacts sealing an event.
// Once Immutable is true no field of the event may ever change.
type Integrity struct {
	Signature   string `json:"signature"`
	WitnessHash string `json:"witnessHash"`
	Immutable   bool   `json:"immutable"`
}

// Event is one persisted audit record. CurrentHash covers the canonical
// form of the event excluding CurrentHash and Integrity; PreviousHash is
// the CurrentHash of the prior event in sequence order, or GenesisHash.
type Event struct {
	ID           string     `json:"id"`
	Sequence     uint64     `json:"sequence"`
	PreviousHash string     `json:"previousHash"`
	CurrentHash  string     `json:"currentHash"`
	EventType    EventType  `json:"eventType"`
	Source       Source     `json:"source"`
	Change       Change     `json:"change"`
	Actor        *Actor     `json:"actor,omitempty"`
	Technical    Technical  `json:"technical"`
	Compliance   Compliance `json:"compliance"`
	Integrity    Integrity  `json:"integrity"`
}

// ChainLink is the integrity envelope of one event: its hashes, witness
// and signature without the content. A contiguous run of links lets a
// partial export prove its events sit on the same unbroken chain without
// exposing other owners' event content.
type ChainLink struct {
	Sequence     uint64    `json:"sequence"`
	PreviousHash string    `json:"previousHash"`
	CurrentHash  string    `json:"currentHash"`
	Timestamp    time.Time `json:"timestamp"`
	WitnessHash  string    `json:"witnessHash"`
	Signature    string    `json:"signature"`
}

// Link returns the event's integrity envelope.
func (e Event) Link() ChainLink {
	return ChainLink{
		Sequence:     e.Sequence,
		PreviousHash: e.PreviousHash,
		CurrentHash:  e.CurrentHash,
		Timestamp:    e.Technical.Timestamp,
		WitnessHash:  e.Integrity.WitnessHash,
		Signature:    e.Integrity.Signature,
	}
}

// OwnerID returns the identity history queries group events under:
// the acting user when known, otherwise the mutated entity.
func (e Event) OwnerID() string {
	if e.Actor != nil && e.Actor.ID != "" {
		return e.Actor.ID
	}
	return e.Source.EntityID
}

// Mutation is the pipeline input: an "entity changed" notification from a
// change source, carrying raw (unredacted) before/after snapshots.
type Mutation struct {
	Collection string         `json:"collection"`
	EntityID   string         `json:"entityId"`
	Path       string         `json:"path,omitempty"`
	Type       ChangeType     `json:"type"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	Actor      *Actor         `json:"actor,omitempty"`
}

// EventTypeFor maps a mutation to its audit event type. Document
// collections get the specific lifecycle types; everything else is
// recorded by collection affinity.
func (m Mutation) EventTypeFor() EventType {
	switch m.Collection {
	case "documents":
		switch m.Type {
		case ChangeCreate:
			return EventDocumentCreated
		case ChangeDelete:
			return EventDocumentDeleted
		default:
			return EventDocumentUpdated
		}
	case "users":
		return EventUserAction
	case "policies":
		return EventPolicyUpdate
	case "compliance":
		return EventCompliance
	default:
		return EventSystemChange
	}
}

// DeadLetter captures an audit event that exhausted its persistence
// retries, so the mutation is reconcilable later instead of lost.
// Payload carries the raw observed mutation for replay.
type DeadLetter struct {
	ID         string     `json:"id"`
	FailedAt   time.Time  `json:"failedAt"`
	Source     Source     `json:"source"`
	ChangeType ChangeType `json:"changeType"`
	Attempts   int        `json:"attempts"`
	Reason     string     `json:"reason"`
	LastError  string     `json:"lastError"`
	Payload    Mutation   `json:"payload"`
}
