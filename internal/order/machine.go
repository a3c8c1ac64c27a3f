package order

type edge struct {
	from    Status
	action  Action
	outcome Outcome
}

// transitions is the canonical graph. Resolve actions are keyed by outcome,
// every other action uses the empty outcome.
var transitions = map[edge]Status{
	{StatusOrdered, ActionCapturePayment, ""}: StatusPaid,
	{StatusOrdered, ActionReject, ""}:         StatusRejected,
	{StatusOrdered, ActionRequestCancel, ""}:  StatusCancelPending,

	{StatusPaid, ActionAccept, ""}:        StatusAccepted,
	{StatusPaid, ActionReject, ""}:        StatusRejected,
	{StatusPaid, ActionRequestCancel, ""}: StatusCancelPending,

	{StatusAccepted, ActionShip, ""}:          StatusShipped,
	{StatusAccepted, ActionRequestReturn, ""}: StatusReturnPending,

	{StatusShipped, ActionConfirm, ""}:       StatusConfirmed,
	{StatusShipped, ActionRequestReturn, ""}: StatusReturnPending,

	{StatusCancelPending, ActionResolveCancel, OutcomeApproved}: StatusCanceled,
	{StatusCancelPending, ActionResolveCancel, OutcomeRejected}: StatusCancelRejected,

	{StatusReturnPending, ActionResolveReturn, OutcomeApproved}: StatusReturned,
	{StatusReturnPending, ActionResolveReturn, OutcomeRejected}: StatusReturnRejected,
}

var roleActions = map[Role][]Action{
	RolePurchaser: {ActionRequestCancel, ActionRequestReturn, ActionConfirm},
	RoleMerchant:  {ActionAccept, ActionReject, ActionShip, ActionResolveCancel, ActionResolveReturn},
	RoleOperator:  {ActionAccept, ActionReject, ActionShip, ActionResolveCancel, ActionResolveReturn},
	RoleSystem:    {ActionCapturePayment},
}

// Request-creating actions are never idempotent: a repeat means a second
// claim, which the claim sub-flow rejects as a conflict.
var nonIdempotent = map[Action]bool{
	ActionRequestCancel: true,
	ActionRequestReturn: true,
}

// Machine evaluates transitions against the canonical graph. It holds no
// state; callers own the current status.
type Machine struct{}

// Allowed reports whether role may ever perform action.
func (Machine) Allowed(role Role, action Action) bool {
	for _, a := range roleActions[role] {
		if a == action {
			return true
		}
	}
	return false
}

// Apply returns the status reached by performing action from current. On any
// refusal it returns current unchanged together with a *TransitionError.
// Re-applying an action whose target is already reached is a no-op.
func (m Machine) Apply(current Status, role Role, action Action, outcome Outcome) (Status, error) {
	reject := func(reason Reason) (Status, error) {
		return current, &TransitionError{From: current, Action: action, Role: role, Reason: reason}
	}

	if !m.Allowed(role, action) {
		return reject(ReasonRoleMismatch)
	}
	if action.Resolves() && outcome == "" {
		return current, ErrOutcomeRequired
	}
	if !action.Resolves() {
		outcome = ""
	}

	if next, ok := transitions[edge{current, action, outcome}]; ok {
		return next, nil
	}

	if !nonIdempotent[action] && m.leadsTo(action, outcome, current) {
		return current, nil
	}

	if current.Terminal() {
		return reject(ReasonTerminal)
	}
	return reject(ReasonConflict)
}

// leadsTo reports whether some edge labelled (action, outcome) ends in target.
func (Machine) leadsTo(action Action, outcome Outcome, target Status) bool {
	for e, to := range transitions {
		if e.action == action && e.outcome == outcome && to == target {
			return true
		}
	}
	return false
}

// AvailableActions lists the actions role may legally perform from status,
// in the role's declared order.
func (m Machine) AvailableActions(status Status, role Role) []Action {
	actions := make([]Action, 0)
	for _, a := range roleActions[role] {
		if m.legalFrom(status, a) {
			actions = append(actions, a)
		}
	}
	return actions
}

func (Machine) legalFrom(status Status, action Action) bool {
	for e := range transitions {
		if e.from == status && e.action == action {
			return true
		}
	}
	return false
}

// Reachable reports whether to can be reached from from along declared edges.
// A status is reachable from itself.
func (Machine) Reachable(from, to Status) bool {
	if from == to {
		return true
	}
	seen := map[Status]bool{from: true}
	queue := []Status{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for e, next := range transitions {
			if e.from != cur || seen[next] {
				continue
			}
			if next == to {
				return true
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	return false
}

// ClaimKindFor maps a request or resolve action to its claim kind.
func ClaimKindFor(action Action) (ClaimKind, bool) {
	switch action {
	case ActionRequestCancel, ActionResolveCancel:
		return ClaimCancel, true
	case ActionRequestReturn, ActionResolveReturn:
		return ClaimReturn, true
	}
	return "", false
}
