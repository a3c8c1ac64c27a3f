package order

// Presentation is the display affordance for one status.
type Presentation struct {
	Label string `json:"label"`
	Badge string `json:"badge"`
}

// StatusView is the read-only projection handed to UI collaborators.
type StatusView struct {
	Status   Status     `json:"status"`
	Label    string     `json:"label"`
	Badge    string     `json:"badge"`
	Terminal bool       `json:"terminal"`
	Actions  []Action   `json:"actions"`
	Claim    *ClaimView `json:"claim,omitempty"`
}

// ClaimView summarises the open claim of an item.
type ClaimView struct {
	Kind   ClaimKind `json:"kind"`
	Reason string    `json:"reason"`
}

var unknownPresentation = Presentation{Label: "Unknown", Badge: "bg-neutral-500"}

var presentations = map[Status]Presentation{
	StatusOrdered:        {Label: "Awaiting payment", Badge: "bg-violet-500"},
	StatusPaid:           {Label: "Paid", Badge: "bg-blue-500"},
	StatusRejected:       {Label: "Order rejected", Badge: "bg-red-500"},
	StatusAccepted:       {Label: "Order accepted", Badge: "bg-purple-500"},
	StatusShipped:        {Label: "Shipping", Badge: "bg-yellow-500"},
	StatusConfirmed:      {Label: "Purchase confirmed", Badge: "bg-green-700"},
	StatusCancelPending:  {Label: "Cancellation requested", Badge: "bg-yellow-700"},
	StatusCanceled:       {Label: "Canceled", Badge: "bg-red-500"},
	StatusCancelRejected: {Label: "Cancellation rejected", Badge: "bg-red-700"},
	StatusReturnPending:  {Label: "Return requested", Badge: "bg-yellow-500"},
	StatusReturned:       {Label: "Returned", Badge: "bg-orange-500"},
	StatusReturnRejected: {Label: "Return rejected", Badge: "bg-red-700"},
}

// Describe returns the label and badge for a status.
func Describe(s Status) Presentation {
	if p, ok := presentations[s]; ok {
		return p
	}
	return unknownPresentation
}

// Present builds the status view for an actor. The CAPTURE_PAYMENT action is
// never offered since no caller role carries it.
func Present(s Status, role Role) StatusView {
	p := Describe(s)
	return StatusView{
		Status:   s,
		Label:    p.Label,
		Badge:    p.Badge,
		Terminal: s.Terminal(),
		Actions:  Machine{}.AvailableActions(s, role),
	}
}

// PresentClaim attaches the open claim, if any, to a view.
func PresentClaim(v StatusView, c *ClaimRequest) StatusView {
	if c != nil && c.Open() {
		v.Claim = &ClaimView{Kind: c.Kind, Reason: c.Reason}
	}
	return v
}
