package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

var submitCmd = &cobra.Command{
	Use:   "submit <proposal.json>",
	Short: "Submit a booking proposal for human review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read proposal file: %w", err)
		}
		var proposal types.BookingProposal
		if err := json.Unmarshal(body, &proposal); err != nil {
			return fmt.Errorf("parse proposal file: %w", err)
		}
		id, err := svc.Pipeline.Submit(&proposal)
		if err != nil {
			return err
		}
		fmt.Printf("submitted proposal %s (status pending)\n", id)
		return nil
	},
}

var approveUser string

var approveCmd = &cobra.Command{
	Use:   "approve <proposal-id>",
	Short: "Approve a pending booking proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := svc.Pipeline.Approve(args[0], approveUser)
		if err != nil {
			return err
		}
		fmt.Printf("approved %s (%s, %s)\n", p.ID, p.DocumentKind, p.Meta.DocumentNo)
		return nil
	},
}

var (
	correctUser   string
	correctReason string
	correctFile   string
)

var correctCmd = &cobra.Command{
	Use:   "correct <proposal-id>",
	Short: "Replace a pending proposal's lines and mark it corrected",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := os.ReadFile(correctFile)
		if err != nil {
			return fmt.Errorf("read corrected lines file: %w", err)
		}
		var lines []types.BookingLine
		if err := json.Unmarshal(body, &lines); err != nil {
			return fmt.Errorf("parse corrected lines file: %w", err)
		}
		p, err := svc.Pipeline.Correct(args[0], correctUser, correctReason, lines)
		if err != nil {
			return err
		}
		fmt.Printf("corrected %s (%s, %s)\n", p.ID, p.DocumentKind, p.Meta.DocumentNo)
		return nil
	},
}

var (
	rejectUser   string
	rejectReason string
)

var rejectCmd = &cobra.Command{
	Use:   "reject <proposal-id>",
	Short: "Reject a pending booking proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := svc.Pipeline.Reject(args[0], rejectUser, rejectReason)
		if err != nil {
			return err
		}
		fmt.Printf("rejected %s: %s\n", p.ID, rejectReason)
		return nil
	},
}

var (
	exportERP    string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every approved/corrected proposal to an ERP writer",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := svc.Pipeline.ExportApproved(clientID, types.ERPTarget(exportERP), exportFormat)
		if err != nil {
			return err
		}
		fmt.Printf("exported %d proposal(s) to %s\n", result.ExportedCount, result.Path)
		for _, id := range result.Collisions {
			fmt.Printf("warning: %s collides on document number/client/kind with another exported proposal\n", id)
		}
		return nil
	},
}

var ingestSender string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Classify an incoming document and assign it to a module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		doc := svc.Intake.Detect(args[0], ingestSender, raw)
		fmt.Printf("document %s\n  kind:       %s\n  module:     %s\n  client:     %s\n  routing:    %s\n  confidence: %.2f\n",
			doc.ID, doc.DetectedKind, doc.AssignedModule, orDash(doc.DetectedClient), orDash(doc.RoutingMethod), doc.Confidence)
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	approveCmd.Flags().StringVar(&approveUser, "user", "", "User id approving the proposal")
	approveCmd.MarkFlagRequired("user")

	correctCmd.Flags().StringVar(&correctUser, "user", "", "User id correcting the proposal")
	correctCmd.Flags().StringVar(&correctReason, "reason", "", "Reason for the correction")
	correctCmd.Flags().StringVar(&correctFile, "lines", "", "Path to a JSON array of corrected booking lines")
	correctCmd.MarkFlagRequired("user")
	correctCmd.MarkFlagRequired("lines")

	rejectCmd.Flags().StringVar(&rejectUser, "user", "", "User id rejecting the proposal")
	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "Reason for the rejection")
	rejectCmd.MarkFlagRequired("user")
	rejectCmd.MarkFlagRequired("reason")

	exportCmd.Flags().StringVar(&exportERP, "erp", "CPP", "ERP target: CPP, Synesis, eRacuni, Pantheon")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "Export format override (writer-specific)")

	ingestCmd.Flags().StringVar(&ingestSender, "sender", "", "Originating email address, used for sender-domain client routing")
}
