package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tether/internal/ipc"
)

func newItemsCommand(ctx *commandContext) *cobra.Command {
	var statusFilter []string
	var review bool

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List tracked torrents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ItemsList(statusFilter)
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				items := resp.Items
				if review {
					filtered := items[:0]
					for _, item := range items {
						if item.NeedsReview {
							filtered = append(filtered, item)
						}
					}
					items = filtered
				}
				if len(items) == 0 {
					fmt.Fprintln(stdout, "No tracked items")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					flags := ""
					if item.NeedsReview {
						flags = "review"
					}
					rows = append(rows, []string{
						shortHash(item.Hash),
						item.Name,
						item.Status,
						strconv.Itoa(len(item.Files)),
						formatSize(item.TotalSize),
						strconv.Itoa(item.MissingScans),
						flags,
					})
				}
				fmt.Fprint(stdout, renderTable(
					[]string{"Hash", "Name", "Status", "Files", "Size", "Absent Scans", "Flags"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				fmt.Fprintln(stdout)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statusFilter, "status", nil, "Filter by status (pending, available, partial, missing, removed)")
	cmd.Flags().BoolVar(&review, "review", false, "Show only items flagged for review")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show HASH",
		Short: "Show details for one tracked torrent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ItemDescribe(args[0])
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				item := resp.Item
				fmt.Fprintf(stdout, "Hash:          %s\n", item.Hash)
				fmt.Fprintf(stdout, "Name:          %s\n", item.Name)
				fmt.Fprintf(stdout, "Status:        %s\n", item.Status)
				fmt.Fprintf(stdout, "Total size:    %s\n", formatSize(item.TotalSize))
				fmt.Fprintf(stdout, "Absent scans:  %d\n", item.MissingScans)
				fmt.Fprintf(stdout, "Needs review:  %s\n", yesNo(item.NeedsReview))
				if item.ReviewReason != "" {
					fmt.Fprintf(stdout, "Review reason: %s\n", item.ReviewReason)
				}
				fmt.Fprintf(stdout, "Created:       %s\n", orDash(item.CreatedAt))
				fmt.Fprintf(stdout, "Updated:       %s\n", orDash(item.UpdatedAt))
				fmt.Fprintf(stdout, "Last seen:     %s\n", orDash(item.LastSeenAt))
				fmt.Fprintf(stdout, "Last checked:  %s\n", orDash(item.LastCheckedAt))
				if item.RemovedAt != "" {
					fmt.Fprintf(stdout, "Removed:       %s\n", item.RemovedAt)
				}

				if len(item.Files) > 0 {
					fmt.Fprintln(stdout)
					rows := make([][]string, 0, len(item.Files))
					for _, f := range item.Files {
						rows = append(rows, []string{f.Path, formatSize(f.Size)})
					}
					fmt.Fprint(stdout, renderTable(
						[]string{"File", "Size"},
						rows,
						[]columnAlignment{alignLeft, alignRight},
					))
					fmt.Fprintln(stdout)
				}
				return nil
			})
		},
	}
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Trigger an immediate reconciliation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reconcile()
				if err != nil {
					return err
				}
				if !resp.Triggered {
					return fmt.Errorf("reconcile: %s", resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
}

func newReviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "review HASH",
		Short: "Clear the review flag after inspecting a malformed descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ReviewReset(args[0])
				if err != nil {
					return err
				}
				if resp.Reset {
					fmt.Fprintf(cmd.OutOrStdout(), "Review flag cleared for %s\n", strings.ToUpper(args[0]))
				}
				return nil
			})
		},
	}
}

func newPurgeCommand(ctx *commandContext) *cobra.Command {
	olderThanDays := -1

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete removed torrents older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Purge(olderThanDays)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d removed item(s)\n", resp.Removed)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&olderThanDays, "older-than-days", -1, "Purge window in days (default: configured retention)")
	return cmd
}
