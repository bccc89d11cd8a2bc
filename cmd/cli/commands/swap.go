package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
	"github.com/coastal-eats/shiftsync/pkg/core/swap"
)

// SwapCmd creates the swap command group: file, accept, cancel, approve,
// reject.
func SwapCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Manage shift swap and drop requests",
	}

	cmd.AddCommand(swapFileCmd(app))
	cmd.AddCommand(swapAcceptCmd(app))
	cmd.AddCommand(swapCancelCmd(app))
	cmd.AddCommand(swapApproveCmd(app))
	cmd.AddCommand(swapRejectCmd(app))

	return cmd
}

func swapFileCmd(app *AppContext) *cobra.Command {
	var targetStr, note string

	cmd := &cobra.Command{
		Use:   "file <assignment_id>",
		Short: "File a swap (with --target) or drop request for your assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignmentID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("assignment_id must be a UUID: %w", err)
			}

			actor, err := app.ResolveActor()
			if err != nil {
				return err
			}

			in := swap.FileInput{
				AssignmentID: assignmentID,
				Requester:    actor,
				Note:         note,
			}
			if targetStr != "" {
				targetID, err := uuid.Parse(targetStr)
				if err != nil {
					return fmt.Errorf("target must be a worker UUID: %w", err)
				}
				in.Target = &targetID
			}

			req, err := app.Workflow.File(app.Ctx, in)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ %s request filed: %s (%s)\n", req.Type, req.ID, req.Status)
			fmt.Printf("  Expires: %s\n\n", req.ExpiresAt.Format("2006-01-02 15:04 MST"))
			return nil
		},
	}

	cmd.Flags().StringVar(&targetStr, "target", "", "Proposed swap target worker UUID (omit for a drop)")
	cmd.Flags().StringVar(&note, "note", "", "Note for the target and manager")

	return cmd
}

func swapAcceptCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "accept <request_id>",
		Short: "Accept a swap proposed to you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("request_id must be a UUID: %w", err)
			}

			actor, err := app.ResolveActor()
			if err != nil {
				return err
			}

			req, err := app.Workflow.Accept(app.Ctx, requestID, actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Swap accepted, awaiting manager review (%s)\n\n", req.ID)
			return nil
		},
	}
}

func swapCancelCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <request_id>",
		Short: "Withdraw a swap or drop request you filed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("request_id must be a UUID: %w", err)
			}

			actor, err := app.ResolveActor()
			if err != nil {
				return err
			}

			if err := app.Workflow.Cancel(app.Ctx, requestID, actor); err != nil {
				return err
			}

			fmt.Println("\n✓ Request cancelled; your assignment is restored")
			return nil
		},
	}
}

func swapApproveCmd(app *AppContext) *cobra.Command {
	var overrideToken, overrideReason string
	var overrideRules []string

	cmd := &cobra.Command{
		Use:   "approve <request_id>",
		Short: "Approve a swap or drop awaiting manager review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("request_id must be a UUID: %w", err)
			}

			actor, err := app.ResolveActor()
			if err != nil {
				return err
			}

			override := buildOverride(overrideToken, overrideReason, overrideRules, actor)
			result, err := app.Workflow.Approve(app.Ctx, requestID, actor, override)
			if err != nil {
				return err
			}

			if result.Code == model.CodeOK {
				fmt.Println("\n✓ Request approved")
			} else {
				fmt.Println("\n✗ Approval blocked; the request stays pending:")
				printAssignResult(result)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&overrideToken, "override-token", "", "Manager override token for the incoming worker")
	cmd.Flags().StringSliceVar(&overrideRules, "override-rules", nil, "Rule IDs the override token covers")
	cmd.Flags().StringVar(&overrideReason, "override-reason", "", "Reason recorded with the override")

	return cmd
}

func swapRejectCmd(app *AppContext) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "reject <request_id>",
		Short: "Reject a swap or drop awaiting manager review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("request_id must be a UUID: %w", err)
			}

			actor, err := app.ResolveActor()
			if err != nil {
				return err
			}

			if err := app.Workflow.Reject(app.Ctx, requestID, actor, note); err != nil {
				return err
			}

			fmt.Println("\n✓ Request rejected; the assignment is restored")
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Reason shown to the requester")

	return cmd
}
