package detection

// Intent is the classified purpose of an inbound message.
type Intent string

const (
	IntentEventRequest    Intent = "event_request"
	IntentConfirmDate     Intent = "confirm_date"
	IntentAcceptOffer     Intent = "accept_offer"
	IntentDeclineOffer    Intent = "decline_offer"
	IntentChangeRequest   Intent = "change_request"
	IntentQnA             Intent = "qna"
	IntentNonEvent        Intent = "non_event"
	IntentCancellation    Intent = "cancellation"
	IntentManagerRequest  Intent = "manager_request"
)

// Language is a detected message language.
type Language string

const (
	LangEN    Language = "en"
	LangDE    Language = "de"
	LangFR    Language = "fr"
	LangIT    Language = "it"
	LangES    Language = "es"
	LangMixed Language = "mixed"
)

// Signals are coarse boolean classifications a detector can assert
// alongside the primary intent.
type Signals struct {
	IsConfirmation    bool `json:"is_confirmation"`
	IsAcceptance      bool `json:"is_acceptance"`
	IsRejection       bool `json:"is_rejection"`
	IsChangeRequest   bool `json:"is_change_request"`
	IsManagerRequest  bool `json:"is_manager_request"`
	IsQuestion        bool `json:"is_question"`
	HasUrgency        bool `json:"has_urgency"`
}

// Entities is the structured-extraction payload of a message.
type Entities struct {
	DateISO         string   `json:"date_iso,omitempty"`
	DateText        string   `json:"date_text,omitempty"`
	StartTime       string   `json:"start_time,omitempty"`
	EndTime         string   `json:"end_time,omitempty"`
	Participants    *int     `json:"participants,omitempty"`
	DurationHours   *float64 `json:"duration_hours,omitempty"`
	RoomPreference  string   `json:"room_preference,omitempty"`
	ProductsAdd     []string `json:"products_add,omitempty"`
	ProductsRemove  []string `json:"products_remove,omitempty"`
	BillingAddress  string   `json:"billing_address,omitempty"`
	MenuChoice      string   `json:"menu_choice,omitempty"`
}

// UnifiedDetection is the full output of detect(message, current_step).
type UnifiedDetection struct {
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Language   Language `json:"language"`
	Signals    Signals  `json:"signals"`
	Entities   Entities `json:"entities"`
	QnATypes   []string `json:"qna_types,omitempty"`
	StepAnchor *int     `json:"step_anchor,omitempty"`
}
