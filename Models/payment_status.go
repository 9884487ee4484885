package Models

// PaymentStatus gates a patient's access to the prescription content a doctor
// sends in their thread. One record per patient.
type PaymentStatus struct {
	Claimed  bool `json:"claimed"`
	Verified bool `json:"verified"`
}

type PaymentState string

const (
	PaymentUnclaimed PaymentState = "unclaimed"
	PaymentClaimed   PaymentState = "claimed"
	PaymentVerified  PaymentState = "verified"
)

type PaymentAction string

const (
	// ActionClaim is the patient confirming they paid.
	ActionClaim PaymentAction = "claim"
	// ActionVerify is the doctor accepting the claim.
	ActionVerify PaymentAction = "verify"
	// ActionDeny is the doctor rejecting the claim, which resets the gate.
	ActionDeny PaymentAction = "deny"
)

// State transitions:
//
//	unclaimed --claim--> claimed --verify--> verified
//	claimed --deny--> unclaimed
var paymentTransitions = map[PaymentState]map[PaymentAction]PaymentState{
	PaymentUnclaimed: {ActionClaim: PaymentClaimed},
	PaymentClaimed:   {ActionVerify: PaymentVerified, ActionDeny: PaymentUnclaimed},
	PaymentVerified:  {},
}

var paymentStates = map[PaymentState]PaymentStatus{
	PaymentUnclaimed: {Claimed: false, Verified: false},
	PaymentClaimed:   {Claimed: true, Verified: false},
	PaymentVerified:  {Claimed: true, Verified: true},
}

// State maps the flag pair to a named state. A stored record with verified set
// but claimed unset cannot be produced by Apply and is read as unclaimed.
func (p PaymentStatus) State() PaymentState {
	switch {
	case p.Claimed && p.Verified:
		return PaymentVerified
	case p.Claimed:
		return PaymentClaimed
	default:
		return PaymentUnclaimed
	}
}

func (p PaymentStatus) CanApply(action PaymentAction) bool {
	_, ok := paymentTransitions[p.State()][action]
	return ok
}

// Apply returns the status after action. An action that is not valid from the
// current state returns the status unchanged together with ErrInvalidTransition.
func (p PaymentStatus) Apply(action PaymentAction) (PaymentStatus, error) {
	next, ok := paymentTransitions[p.State()][action]
	if !ok {
		return p, ErrInvalidTransition
	}
	return paymentStates[next], nil
}

// Withholds reports whether doctor-sent prescription content must be hidden
// from the patient: a payment is claimed but not yet verified and the doctor
// has already sent something.
func (p PaymentStatus) Withholds(hasDoctorMessage bool) bool {
	return p.Claimed && !p.Verified && hasDoctorMessage
}
