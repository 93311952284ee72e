package steps

// Handlers maps a current_step number to its handler, following the
// ordering in spec.md §4.7 ("Step ordering & tie-breaks"): Step1Intake
// always runs first regardless of current_step, then control passes to
// whichever step owns the (possibly guard-forced) current_step.
var Handlers = map[int]Handler{
	1: Step1Intake,
	2: Step2DateConfirmation,
	3: Step3RoomAvailability,
	4: Step4Offer,
	5: Step5Negotiation,
	6: Step6Transition,
	7: Step7Confirmation,
}

// HandlerForStep returns the handler owning a given step, defaulting to
// Step1Intake for any out-of-range value (ClampStep already normalizes
// events, this is a defensive fallback for ad-hoc callers).
func HandlerForStep(step int) Handler {
	if h, ok := Handlers[step]; ok {
		return h
	}
	return Step1Intake
}
