package domain

import (
	"fmt"
	"sort"
	"strings"
)

// TransitionTable is a table-driven guard over a status enum. Keys are source
// statuses, values the allowed targets. A status missing from the table or
// mapped to an empty slice is terminal.
type TransitionTable[S ~string] map[S][]S

// Validate reports whether from -> to is allowed. Same-status transitions are
// always valid no-ops. force bypasses the table entirely; callers that pass
// force must write an audit record before applying the change.
func (t TransitionTable[S]) Validate(from, to S, force bool) (bool, string) {
	if force {
		return true, "forced override"
	}
	if from == to {
		return true, "no-op"
	}
	for _, allowed := range t[from] {
		if allowed == to {
			return true, ""
		}
	}
	return false, fmt.Sprintf("invalid transition %s -> %s, allowed: [%s]", from, to, t.allowedList(from))
}

// IsTerminal reports whether no transition leads out of the given status.
func (t TransitionTable[S]) IsTerminal(status S) bool {
	return len(t[status]) == 0
}

func (t TransitionTable[S]) allowedList(from S) string {
	targets := t[from]
	if len(targets) == 0 {
		return "none, status is terminal"
	}
	names := make([]string, 0, len(targets))
	for _, s := range targets {
		names = append(names, string(s))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// StateTransitionError is raised when a disallowed transition is attempted
// without force. Callers must propagate it rather than silently skipping the
// update.
type StateTransitionError struct {
	Entity string
	From   string
	To     string
	Reason string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("%s state transition rejected: %s", e.Entity, e.Reason)
}

func NewStateTransitionError[S ~string](entity string, from, to S, reason string) *StateTransitionError {
	return &StateTransitionError{
		Entity: entity,
		From:   string(from),
		To:     string(to),
		Reason: reason,
	}
}

var TransactionTransitions = TransitionTable[TransactionStatus]{
	TransactionPending:   {TransactionConfirmed, TransactionFailed, TransactionCancelled},
	TransactionConfirmed: {},
	TransactionFailed:    {TransactionPending, TransactionCancelled},
	TransactionCancelled: {},
}

var EscrowTransitions = TransitionTable[EscrowStatus]{
	EscrowPendingPayment:   {EscrowPaymentConfirmed, EscrowCancelled},
	EscrowPaymentConfirmed: {EscrowActive, EscrowDisputed, EscrowRefunded},
	EscrowActive:           {EscrowCompleted, EscrowDisputed, EscrowRefunded},
	EscrowDisputed:         {EscrowCompleted, EscrowRefunded},
	EscrowCompleted:        {},
	EscrowCancelled:        {},
	EscrowRefunded:         {},
}

var CashoutTransitions = TransitionTable[CashoutStatus]{
	CashoutPending:              {CashoutOTPPending, CashoutAdminPending, CashoutCancelled},
	CashoutOTPPending:           {CashoutAdminPending, CashoutPending, CashoutCancelled},
	CashoutAdminPending:         {CashoutApproved, CashoutCancelled},
	CashoutApproved:             {CashoutExecuting, CashoutCancelled},
	CashoutExecuting:            {CashoutSuccess, CashoutFailed},
	CashoutFailed:               {CashoutPending, CashoutCancelled},
	CashoutSuccess:              {},
	CashoutCancelled:            {},
	CashoutPendingAddressConfig: {CashoutPending, CashoutCancelled},
}

var ExchangeOrderTransitions = TransitionTable[ExchangeOrderStatus]{
	ExchangeQuoted:         {ExchangePendingPayment, ExchangeExpired, ExchangeCancelled},
	ExchangePendingPayment: {ExchangePaid, ExchangeExpired, ExchangeCancelled},
	ExchangePaid:           {ExchangeProcessing, ExchangeCancelled},
	ExchangeProcessing:     {ExchangeCompleted, ExchangeFailed},
	ExchangeFailed:         {ExchangeProcessing, ExchangeCancelled},
	ExchangeCompleted:      {},
	ExchangeCancelled:      {},
	ExchangeExpired:        {},
}

var DisputeTransitions = TransitionTable[DisputeStatus]{
	DisputeOpen:        {DisputeUnderReview, DisputeResolved},
	DisputeUnderReview: {DisputeResolved},
	DisputeResolved:    {},
}
