package domain

import "time"

// ThreadState mirrors spec.md §3's thread_state enumeration.
type ThreadState string

const (
	ThreadAwaitingClient         ThreadState = "Awaiting Client"
	ThreadAwaitingClientResponse ThreadState = "Awaiting Client Response"
	ThreadWaitingOnHIL           ThreadState = "Waiting on HIL"
	ThreadInProgress             ThreadState = "In Progress"
	ThreadClosed                 ThreadState = "Closed"
	ThreadConfirmed              ThreadState = "Confirmed"
)

// Status mirrors spec.md §3's status enumeration.
type Status string

const (
	StatusLead          Status = "Lead"
	StatusDateConfirmed Status = "Date Confirmed"
	StatusOfferSent     Status = "Offer Sent"
	StatusAccepted      Status = "Accepted"
	StatusConfirmed     Status = "Confirmed"
	StatusCancelled     Status = "Cancelled"
)

// Duration is a requested event time window.
type Duration struct {
	Start string `json:"start,omitempty"` // "HH:MM"
	End   string `json:"end,omitempty"`
}

// Requirements holds the jointly-determined facts a room must satisfy.
// Field presence (not zero value) drives the requirements hash, so every
// field is a pointer or has an explicit "set" companion where ambiguity
// between zero and absent matters.
type Requirements struct {
	Participants         *int      `json:"participants,omitempty"`
	Duration             *Duration `json:"duration,omitempty"`
	SeatingLayout        string    `json:"seating_layout,omitempty"`
	SpecialRequirements  string    `json:"special_requirements,omitempty"`
	PreferredRoom        string    `json:"preferred_room,omitempty"`
}

// OfferLineItem is one priced row in an offer.
type OfferLineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// Offer is one entry in an event's ordered offer history.
type Offer struct {
	OfferID     string          `json:"offer_id"`
	TotalAmount float64         `json:"total_amount"`
	LineItems   []OfferLineItem `json:"line_items"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DepositInfo tracks the deposit requirement and payment state for an
// event, derived from global_deposit config at offer time.
type DepositInfo struct {
	Required bool       `json:"required"`
	Type     string     `json:"type,omitempty"` // "percentage" | "fixed"
	Amount   float64    `json:"amount,omitempty"`
	DueDate  string     `json:"due_date,omitempty"`
	Paid     bool       `json:"paid"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`
}

// BillingDetails is the client's invoicing address, captured anytime
// (spec.md §4.6, CLIENT_INFO change type).
type BillingDetails struct {
	NameOrCompany string `json:"name_or_company,omitempty"`
	Street        string `json:"street,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	City          string `json:"city,omitempty"`
	Country       string `json:"country,omitempty"`
}

// Complete reports whether every field the billing gate requires
// (spec.md §4.7 Step 7) is present. Country is optional.
func (b BillingDetails) Complete() bool {
	return b.NameOrCompany != "" && b.Street != "" && b.PostalCode != "" && b.City != ""
}

// BillingRequirements tracks which steps are currently blocked waiting
// on billing details.
type BillingRequirements struct {
	AwaitingBillingForAccept       bool `json:"awaiting_billing_for_accept"`
	AwaitingBillingForConfirmation bool `json:"awaiting_billing_for_confirmation"`
}

// SiteVisitStatus is the venue-wide site-visit sub-state machine status.
// Site visits are scheduled against the whole venue, never a specific
// room — see SPEC_FULL.md §5.2.
type SiteVisitStatus string

const (
	SiteVisitIdle           SiteVisitStatus = "idle"
	SiteVisitDatePending    SiteVisitStatus = "date_pending"
	SiteVisitTimePending    SiteVisitStatus = "time_pending"
	SiteVisitConfirmPending SiteVisitStatus = "confirm_pending"
	SiteVisitScheduled      SiteVisitStatus = "scheduled"
	SiteVisitCompleted      SiteVisitStatus = "completed"
	SiteVisitCancelled      SiteVisitStatus = "cancelled"
)

// SiteVisitState is the per-event site-visit sub-state.
type SiteVisitState struct {
	Status          SiteVisitStatus `json:"status"`
	DateISO         string          `json:"date_iso,omitempty"`
	TimeSlot        string          `json:"time_slot,omitempty"`
	ProposedDates   []string        `json:"proposed_dates,omitempty"`
	ProposedSlots   []string        `json:"proposed_slots,omitempty"`
	PendingSlot     string          `json:"pending_slot,omitempty"`
	InitiatedAtStep int             `json:"initiated_at_step,omitempty"`

	// LegacyRoomID is a deprecated field retained for reads of
	// historical events created before site visits became venue-wide.
	// Never written by new code (SPEC_FULL.md §5.2 / spec.md Open
	// Questions).
	LegacyRoomID *string `json:"room_id,omitempty"`
}

// ConfirmationState tracks a pending Step 7 confirmation-path question
// (e.g. "did you mean confirm or reschedule?").
type ConfirmationState struct {
	PendingKind      string `json:"pending_kind,omitempty"`
	LastResponseType string `json:"last_response_type,omitempty"`
}

// AuditEntry is an immutable breadcrumb recorded whenever current_step
// or caller_step changes (spec.md §4.1).
type AuditEntry struct {
	Ts     time.Time `json:"ts"`
	Field  string    `json:"field"`
	Before any       `json:"before"`
	After  any       `json:"after"`
	Reason string    `json:"reason,omitempty"`
}

// LogEntry is a free-form operational log line attached to an event.
type LogEntry struct {
	Ts      time.Time `json:"ts"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// ActivityEntry is a human-readable activity-feed row, produced by the
// activity transformer from trace bus entries (SPEC_FULL.md §2, C2).
type ActivityEntry struct {
	Ts      time.Time `json:"ts"`
	Kind    string    `json:"kind"`
	Summary string    `json:"summary"`
}

// Event is the single record that a conversation thread owns; it
// progresses through the seven-step booking state machine described in
// spec.md §2 and §4.7.
type Event struct {
	EventID  string `json:"event_id"`
	ClientID string `json:"client_id"`
	ThreadID string `json:"thread_id"`

	CurrentStep int  `json:"current_step"` // 1..7
	CallerStep  *int `json:"caller_step,omitempty"`

	ThreadState ThreadState `json:"thread_state"`
	Status      Status      `json:"status"`

	Requirements     Requirements `json:"requirements"`
	RequirementsHash string       `json:"requirements_hash"`

	ChosenDate     string `json:"chosen_date,omitempty"` // DD.MM.YYYY
	DateConfirmed  bool   `json:"date_confirmed"`

	LockedRoomID string `json:"locked_room_id,omitempty"`
	RoomEvalHash string `json:"room_eval_hash,omitempty"`

	Offers         []Offer `json:"offers"`
	CurrentOfferID string  `json:"current_offer_id,omitempty"`
	OfferHash      string  `json:"offer_hash,omitempty"`
	OfferAccepted  bool    `json:"offer_accepted"`
	OfferStatus    string  `json:"offer_status,omitempty"`

	DepositInfo DepositInfo `json:"deposit_info"`

	BillingDetails       BillingDetails       `json:"billing_details"`
	BillingRequirements  BillingRequirements  `json:"billing_requirements"`

	SiteVisitState     SiteVisitState     `json:"site_visit_state"`
	ConfirmationState  ConfirmationState  `json:"confirmation_state"`

	Msgs []string `json:"msgs"` // processed msg_ids, idempotency set

	Logs         []LogEntry      `json:"logs,omitempty"`
	Audit        []AuditEntry    `json:"audit,omitempty"`
	ActivityLog  []ActivityEntry `json:"activity_log,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEvent creates a fresh Step-1 event for a client/thread pair.
func NewEvent(eventID, clientID, threadID string, now time.Time) *Event {
	return &Event{
		EventID:     eventID,
		ClientID:    clientID,
		ThreadID:    threadID,
		CurrentStep: 1,
		ThreadState: ThreadInProgress,
		Status:      StatusLead,
		SiteVisitState: SiteVisitState{
			Status:        SiteVisitIdle,
			ProposedDates: []string{},
			ProposedSlots: []string{},
		},
		Msgs:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasProcessed reports whether a msg_id has already been applied to this
// event (idempotency short-circuit, spec.md Invariant 4).
func (e *Event) HasProcessed(msgID string) bool {
	for _, m := range e.Msgs {
		if m == msgID {
			return true
		}
	}
	return false
}

// MarkProcessed appends a msg_id to the idempotency set. It is a no-op
// if already present.
func (e *Event) MarkProcessed(msgID string) {
	if e.HasProcessed(msgID) {
		return
	}
	e.Msgs = append(e.Msgs, msgID)
}

// ClampStep clamps a step number to the valid [1,7] range (spec.md §8
// Boundary behaviors).
func ClampStep(step int) int {
	if step < 1 {
		return 1
	}
	if step > 7 {
		return 7
	}
	return step
}

// BeginDetour sets current_step to the owning step of a detected change
// and records caller_step, composing with any detour already active by
// preserving the original (outermost) caller_step — a nested detour
// never overwrites the step the first detour will eventually return to
// (spec.md §4.6 Detour protocol; Open Question resolved in DESIGN.md in
// favor of the outermost step).
func (e *Event) BeginDetour(ownerStep int) {
	if e.CallerStep == nil {
		caller := e.CurrentStep
		e.CallerStep = &caller
	}
	e.CurrentStep = ClampStep(ownerStep)
}

// ResolveDetour restores current_step to the caller step and clears the
// detour, called by the owning step handler on successful completion.
func (e *Event) ResolveDetour() {
	if e.CallerStep == nil {
		return
	}
	e.CurrentStep = ClampStep(*e.CallerStep)
	e.CallerStep = nil
}

// InDetour reports whether a detour is currently active.
func (e *Event) InDetour() bool {
	return e.CallerStep != nil
}
