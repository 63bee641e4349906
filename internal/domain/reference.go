package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type ReferenceKind string

const (
	ReferenceEscrow ReferenceKind = "escrow"
	ReferenceWallet ReferenceKind = "wallet"
)

// ParsePaymentReference recovers the internal user id from a structured
// payment reference. Two formats are issued by the platform:
//
//	ESCROW-{user_id}-{suffix}
//	WALLET-{date}-{time}-{user_id}
//
// Anything else is malformed and must hard-fail the webhook rather than
// credit the wrong or no user.
func ParsePaymentReference(ref string) (ReferenceKind, int64, error) {
	ref = strings.TrimSpace(ref)
	parts := strings.Split(ref, "-")

	switch {
	case len(parts) >= 3 && parts[0] == "ESCROW":
		userID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || userID <= 0 {
			return "", 0, fmt.Errorf("%w: bad user id in %q", ErrMalformedReference, ref)
		}
		return ReferenceEscrow, userID, nil

	case len(parts) == 4 && parts[0] == "WALLET":
		userID, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil || userID <= 0 {
			return "", 0, fmt.Errorf("%w: bad user id in %q", ErrMalformedReference, ref)
		}
		return ReferenceWallet, userID, nil
	}

	return "", 0, fmt.Errorf("%w: %q", ErrMalformedReference, ref)
}
