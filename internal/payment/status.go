package payment

import (
	"strings"

	"github.com/noah-isme/loja-api/internal/config"
	"github.com/noah-isme/loja-api/internal/sale"
)

// Gateway payment statuses.
const (
	StatusApproved    = "approved"
	StatusPending     = "pending"
	StatusInProcess   = "in_process"
	StatusAuthorized  = "authorized"
	StatusInMediation = "in_mediation"
	StatusRejected    = "rejected"
	StatusCancelled   = "cancelled"
	StatusRefunded    = "refunded"
	StatusChargedBack = "charged_back"
)

// Decision is what a verified gateway status means for a pending sale.
type Decision struct {
	// Target is the sale status to apply. Empty means leave the sale as is.
	Target sale.Status
	// Undecided is set for statuses that may still settle either way.
	Undecided bool
}

// Decide maps a verified gateway status onto the ledger. Adverse and
// unrecognised statuses follow policy: keep_pending leaves the sale untouched,
// fail closes it.
func Decide(gatewayStatus, policy string) Decision {
	switch strings.ToLower(strings.TrimSpace(gatewayStatus)) {
	case StatusApproved:
		return Decision{Target: sale.StatusPaid}
	case StatusPending, StatusInProcess, StatusAuthorized, StatusInMediation:
		return Decision{Undecided: true}
	case StatusCancelled:
		if policy == config.PolicyFail {
			return Decision{Target: sale.StatusCancelled}
		}
	default:
		if policy == config.PolicyFail {
			return Decision{Target: sale.StatusFailed}
		}
	}
	return Decision{}
}

// isFinalGatewayStatus reports whether the gateway will not move the payment
// on its own any more, which makes the answer safe to cache.
func isFinalGatewayStatus(status string) bool {
	switch status {
	case StatusApproved, StatusRejected, StatusCancelled, StatusRefunded, StatusChargedBack:
		return true
	}
	return false
}
