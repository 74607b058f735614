package kyc

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Awaiting reports whether s belongs to the "awaiting review" bucket.
func (s Status) Awaiting() bool {
	return s == StatusPending || s == StatusSubmitted || s == StatusUnderReview
}

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Result is the terminal status an action produces.
func (a Action) Result() (Status, bool) {
	switch a {
	case ActionApprove:
		return StatusApproved, true
	case ActionReject:
		return StatusRejected, true
	}
	return "", false
}

type Slot string

const (
	SlotIDFront        Slot = "id_front"
	SlotIDBack         Slot = "id_back"
	SlotInsuranceCard  Slot = "insurance_card"
	SlotProofOfAddress Slot = "proof_of_address"
	SlotSelfie         Slot = "selfie"
)

var knownSlots = map[Slot]bool{
	SlotIDFront:        true,
	SlotIDBack:         true,
	SlotInsuranceCard:  true,
	SlotProofOfAddress: true,
	SlotSelfie:         true,
}

// Slots maps a named document slot to an opaque storage reference.
type Slots map[Slot]string

// Clean drops empty references and rejects unknown slot names.
func (s Slots) Clean() (Slots, error) {
	out := Slots{}
	for name, ref := range s {
		if !knownSlots[name] {
			return nil, fmt.Errorf("unknown document slot %q", name)
		}
		if ref = strings.TrimSpace(ref); ref != "" {
			out[name] = ref
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one document reference is required")
	}
	return out, nil
}

type Document struct {
	ID               uuid.UUID
	PatientID        uuid.UUID
	Slots            Slots
	Status           Status
	Active           bool
	ReviewedBy       *uuid.UUID
	ReviewedAt       *time.Time
	RejectionRemarks *string
	SubmittedAt      time.Time
	UpdatedAt        time.Time
}

type Bucket string

const (
	BucketAwaiting Bucket = "awaiting"
	BucketApproved Bucket = "approved"
	BucketRejected Bucket = "rejected"
	BucketAll      Bucket = "all"
)

// ParseBucket accepts the query-string spellings. "pending" and "" both mean awaiting.
func ParseBucket(raw string) (Bucket, bool) {
	switch Bucket(strings.ToLower(strings.TrimSpace(raw))) {
	case "", "pending", BucketAwaiting:
		return BucketAwaiting, true
	case BucketApproved:
		return BucketApproved, true
	case BucketRejected:
		return BucketRejected, true
	case BucketAll:
		return BucketAll, true
	}
	return "", false
}

// Statuses returns the statuses in b; nil means no filter.
func (b Bucket) Statuses() []Status {
	switch b {
	case BucketApproved:
		return []Status{StatusApproved}
	case BucketRejected:
		return []Status{StatusRejected}
	case BucketAll:
		return nil
	}
	return []Status{StatusPending, StatusSubmitted, StatusUnderReview}
}

type Query struct {
	Bucket Bucket
	Page   int // 1-based
	Limit  int
}

type ReviewInput struct {
	Action     Action
	Remarks    string
	ReviewerID uuid.UUID
}

// ReviewDecision is what the store applies atomically with the patient update.
type ReviewDecision struct {
	Status     Status
	ReviewerID uuid.UUID
	Remarks    *string
	At         time.Time
}
