package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lockbay/lockbay-payment-service/internal/domain"
)

type OpenDisputeInput struct {
	EscrowID    string
	InitiatorID int64
	Reason      string
}

type DisputeUsecase interface {
	OpenDispute(ctx context.Context, in OpenDisputeInput) (*domain.Dispute, error)
	ReviewDispute(ctx context.Context, disputeID, reviewer string) error
	ResolveDispute(ctx context.Context, disputeID, resolvedBy, resolution, note string) error
}

// DefaultDisputeUsecase freezes a funded escrow in the disputed state and
// resolves it with exactly one of the two fund movements: refund to buyer or
// release to seller. Resolution and the dispute row flip commit together.
type DefaultDisputeUsecase struct {
	disputes   domain.DisputeRepository
	settlement SettlementUsecase
	store      domain.SettlementStore
	log        *slog.Logger
}

func NewDefaultDisputeUsecase(disputes domain.DisputeRepository, settlement SettlementUsecase, store domain.SettlementStore, log *slog.Logger) *DefaultDisputeUsecase {
	return &DefaultDisputeUsecase{disputes: disputes, settlement: settlement, store: store, log: log}
}

func (uc *DefaultDisputeUsecase) OpenDispute(ctx context.Context, in OpenDisputeInput) (*domain.Dispute, error) {
	if in.Reason == "" {
		return nil, fmt.Errorf("dispute reason is required")
	}

	dispute := &domain.Dispute{
		EscrowID:    in.EscrowID,
		InitiatorID: in.InitiatorID,
		Reason:      in.Reason,
		Status:      domain.DisputeOpen,
	}
	err := uc.store.WithinTx(ctx, func(store domain.SettlementStore) error {
		escrow, err := store.GetEscrowForUpdate(ctx, in.EscrowID)
		if err != nil {
			return err
		}
		if in.InitiatorID != escrow.BuyerID && (escrow.SellerID == nil || in.InitiatorID != *escrow.SellerID) {
			return fmt.Errorf("user %d is not a party to escrow %s", in.InitiatorID, in.EscrowID)
		}
		// Same-status passes the table as a no-op, so the double-open case
		// needs its own check.
		if escrow.Status == domain.EscrowDisputed {
			return fmt.Errorf("escrow %s is already disputed", in.EscrowID)
		}
		if ok, reason := domain.EscrowTransitions.Validate(escrow.Status, domain.EscrowDisputed, false); !ok {
			return domain.NewStateTransitionError("escrow", escrow.Status, domain.EscrowDisputed, reason)
		}

		oldStatus := escrow.Status
		escrow.Status = domain.EscrowDisputed
		if err := store.SaveEscrow(ctx, escrow); err != nil {
			return err
		}
		if err := store.CreateDispute(ctx, dispute); err != nil {
			return err
		}

		return store.CreateAuditEvent(ctx, &domain.AuditEvent{
			Actor:      fmt.Sprintf("user:%d", in.InitiatorID),
			Action:     "dispute_opened",
			EntityType: "escrow",
			EntityID:   in.EscrowID,
			OldStatus:  string(oldStatus),
			NewStatus:  string(domain.EscrowDisputed),
			Detail:     in.Reason,
		})
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info("dispute opened",
		"dispute_id", dispute.ID, "escrow_id", in.EscrowID, "initiator_id", in.InitiatorID)
	return dispute, nil
}

func (uc *DefaultDisputeUsecase) ReviewDispute(ctx context.Context, disputeID, reviewer string) error {
	dispute, err := uc.disputes.GetDisputeByID(ctx, disputeID)
	if err != nil {
		return err
	}
	if ok, reason := domain.DisputeTransitions.Validate(dispute.Status, domain.DisputeUnderReview, false); !ok {
		return domain.NewStateTransitionError("dispute", dispute.Status, domain.DisputeUnderReview, reason)
	}
	if err := uc.disputes.UpdateDisputeStatus(ctx, disputeID, domain.DisputeUnderReview); err != nil {
		return err
	}
	uc.log.Info("dispute under review", "dispute_id", disputeID, "reviewer", reviewer)
	return nil
}

// ResolveDispute applies the chosen fund movement and closes the dispute in
// one transaction. Concurrent resolutions serialize on the escrow row lock;
// the loser fails the escrow transition check.
func (uc *DefaultDisputeUsecase) ResolveDispute(ctx context.Context, disputeID, resolvedBy, resolution, note string) error {
	dispute, err := uc.disputes.GetDisputeByID(ctx, disputeID)
	if err != nil {
		return err
	}
	if ok, reason := domain.DisputeTransitions.Validate(dispute.Status, domain.DisputeResolved, false); !ok {
		return domain.NewStateTransitionError("dispute", dispute.Status, domain.DisputeResolved, reason)
	}

	err = uc.store.WithinTx(ctx, func(store domain.SettlementStore) error {
		switch resolution {
		case domain.ResolutionRefundBuyer:
			if err := uc.settlement.RefundEscrowInTx(ctx, store, dispute.EscrowID, resolvedBy, note); err != nil {
				return err
			}
		case domain.ResolutionReleaseSeller:
			if err := uc.settlement.ReleaseEscrowInTx(ctx, store, dispute.EscrowID, resolvedBy, note); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown dispute resolution %q", resolution)
		}
		return store.ResolveDispute(ctx, disputeID, resolvedBy, resolution)
	})
	if err != nil {
		return err
	}

	uc.log.Info("dispute resolved",
		"dispute_id", disputeID,
		"escrow_id", dispute.EscrowID,
		"resolution", resolution,
		"resolved_by", resolvedBy)
	return nil
}
