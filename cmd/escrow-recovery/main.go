package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/lockbay/lockbay-payment-service/internal/app/setup"
	"github.com/lockbay/lockbay-payment-service/internal/usecase"
)

func main() {
	listFlag := flag.Bool("list", false, "List orphaned escrows without touching them")
	recoverFlag := flag.String("recover", "", "Recover a single escrow by ID")
	recoverAllFlag := flag.Bool("recover-all", false, "Recover every orphaned escrow")
	dryRunFlag := flag.Bool("dry-run", false, "Run the recovery settlement, then roll it back")
	flag.Parse()

	if !*listFlag && *recoverFlag == "" && !*recoverAllFlag {
		fmt.Fprintln(os.Stderr, "usage: escrow-recovery --list | --recover <escrow-id> [--dry-run] | --recover-all [--dry-run]")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}

	deps, err := setup.InitializeDependencies()
	if err != nil {
		log.Fatalf("failed to init dependencies: %v", err)
	}

	settlement := usecase.NewDefaultSettlementUsecase(deps.Repositories.Store, deps.Logger)
	recovery := usecase.NewDefaultRecoveryUsecase(deps.Repositories.EscrowRepo, deps.Repositories.Store, settlement, deps.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch {
	case *listFlag:
		if err := listOrphans(ctx, recovery); err != nil {
			log.Fatalf("list failed: %v", err)
		}
	case *recoverFlag != "":
		if err := recoverOne(ctx, recovery, *recoverFlag, *dryRunFlag); err != nil {
			log.Fatalf("recover %s failed: %v", *recoverFlag, err)
		}
	case *recoverAllFlag:
		summary, err := recovery.RecoverAll(ctx, *dryRunFlag)
		if err != nil {
			log.Fatalf("recover-all failed: %v", err)
		}
		fmt.Printf("recovered %d/%d escrows (%d failed)", summary.Recovered, summary.Total, summary.Failed)
		if summary.DryRun {
			fmt.Print(" [dry run, rolled back]")
		}
		fmt.Println()
		// Partial failure still matters to whoever scripted this.
		if summary.Failed > 0 {
			os.Exit(1)
		}
	}
}

func listOrphans(ctx context.Context, recovery usecase.RecoveryUsecase) error {
	orphans, err := recovery.ListOrphanedEscrows(ctx)
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		fmt.Println("no orphaned escrows found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTRADE REF\tBUYER\tAMOUNT\tSTATUS\tCONFIRMED AT")
	for _, e := range orphans {
		confirmed := "-"
		if e.PaymentConfirmedAt != nil {
			confirmed = e.PaymentConfirmedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s %s\t%s\t%s\n",
			e.ID, e.TradeRef, e.BuyerID, e.Amount.StringFixed(2), e.Currency, e.Status, confirmed)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d orphaned escrow(s)\n", len(orphans))
	return nil
}

func recoverOne(ctx context.Context, recovery usecase.RecoveryUsecase, escrowID string, dryRun bool) error {
	result, err := recovery.RecoverEscrow(ctx, escrowID, dryRun)
	if err != nil {
		return err
	}

	if result.AlreadySettled {
		fmt.Printf("escrow %s already settled (holding %s), nothing to do\n", escrowID, result.HoldingID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "escrow\t%s\n", escrowID)
	fmt.Fprintf(w, "held\t%s\n", result.EscrowHeld.StringFixed(2))
	fmt.Fprintf(w, "platform fee\t%s\n", result.PlatformFee.StringFixed(2))
	fmt.Fprintf(w, "overpayment\t%s\n", result.Overpayment.StringFixed(2))
	fmt.Fprintf(w, "holding\t%s\n", result.HoldingID)
	if err := w.Flush(); err != nil {
		return err
	}
	if dryRun {
		fmt.Println("dry run: settlement validated and rolled back")
	}
	return nil
}
