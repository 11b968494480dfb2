package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tether/internal/ipc"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "State database utilities",
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Show state database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DatabaseHealth()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				for _, line := range renderSectionHeader("Database Health", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Path", statusInfo, resp.DBPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Exists", boolKind(resp.DatabaseExists), yesNo(resp.DatabaseExists), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Readable", boolKind(resp.DatabaseReadable), yesNo(resp.DatabaseReadable), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Schema version", statusInfo, orDash(resp.SchemaVersion), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Table present", boolKind(resp.TableExists), yesNo(resp.TableExists), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Integrity check", boolKind(resp.IntegrityCheck), yesNo(resp.IntegrityCheck), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Total items", statusInfo, fmt.Sprintf("%d", resp.TotalItems), colorize))
				if len(resp.MissingColumns) > 0 {
					fmt.Fprintln(stdout, renderStatusLine("Missing columns", statusError, strings.Join(resp.MissingColumns, ", "), colorize))
				}
				if resp.Error != "" {
					fmt.Fprintln(stdout, renderStatusLine("Error", statusError, resp.Error, colorize))
				}
				return nil
			})
		},
	}

	dbCmd.AddCommand(healthCmd)
	return dbCmd
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}
