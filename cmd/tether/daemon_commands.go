package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tether/internal/deps"
	"tether/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the tether daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			if client, err := ctx.dialClient(); err == nil {
				defer client.Close()
				resp, err := client.Start()
				if err != nil {
					return err
				}
				if resp.Started {
					fmt.Fprintln(stdout, "Daemon started")
				} else {
					fmt.Fprintln(stdout, resp.Message)
				}
				return nil
			}

			fmt.Fprintln(stdout, "Daemon not running, launching...")
			if err := launchDaemonProcess(ctx); err != nil {
				return err
			}
			if err := waitForSocket(ctx.socketPath(), 10*time.Second); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the tether daemon (terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			client, err := ctx.dialClient()
			if err != nil {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if _, err := client.Stop(); err != nil {
				client.Close()
				return err
			}
			client.Close()

			if pid, err := readPIDFile(ctx); err == nil && pid > 0 {
				if err := syscall.Kill(pid, syscall.SIGTERM); err == nil {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", pid)
				}
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and item status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			client, err := ctx.dialClient()
			if err != nil {
				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "not running", colorize))
				fmt.Fprintln(stdout)
				printDependencySection(ctx, stdout, colorize)
				return nil
			}
			defer client.Close()

			resp, err := client.Status()
			if err != nil {
				return err
			}
			printStatus(stdout, resp, colorize)
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func printStatus(stdout io.Writer, resp *ipc.StatusResponse, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	runningKind := statusWarn
	runningMsg := "stopped"
	if resp.Running {
		runningKind = statusOK
		runningMsg = fmt.Sprintf("running (pid %d)", resp.PID)
	}
	fmt.Fprintln(stdout, renderStatusLine("Daemon", runningKind, runningMsg, colorize))

	mountKind := statusOK
	mountMsg := "mount readable"
	if resp.DowngradesPaused {
		mountKind = statusError
		mountMsg = fmt.Sprintf("outage, downgrades paused (%d consecutive unknown scans)", resp.UnknownStreak)
	} else if resp.UnknownStreak > 0 {
		mountKind = statusWarn
		mountMsg = fmt.Sprintf("%d consecutive unknown scans", resp.UnknownStreak)
	}
	fmt.Fprintln(stdout, renderStatusLine("Mount", mountKind, mountMsg, colorize))

	if resp.LastError != "" {
		fmt.Fprintln(stdout, renderStatusLine("Last error", statusError, resp.LastError, colorize))
	}
	if resp.LastPassAt != "" {
		fmt.Fprintln(stdout, renderStatusLine("Last pass", statusInfo, resp.LastPassAt, colorize))
	}
	fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, resp.DBPath, colorize))

	if resp.LastPass != nil {
		fmt.Fprintln(stdout)
		for _, line := range renderSectionHeader("Last Pass", colorize) {
			fmt.Fprintln(stdout, line)
		}
		pass := resp.LastPass
		if pass.Skipped {
			fmt.Fprintln(stdout, renderStatusLine("Outcome", statusWarn, "skipped, mount state unknown", colorize))
		} else {
			detail := fmt.Sprintf("registered %d, available %d, partial %d, missing %d, removed %d, review %d, errors %d (%dms)",
				pass.Registered, pass.ToAvailable, pass.ToPartial, pass.ToMissing, pass.ToRemoved, pass.ReviewFlagged, pass.ItemErrors, pass.DurationMS)
			kind := statusOK
			if pass.ItemErrors > 0 {
				kind = statusWarn
			}
			fmt.Fprintln(stdout, renderStatusLine("Outcome", kind, detail, colorize))
		}
	}

	fmt.Fprintln(stdout)
	for _, line := range renderSectionHeader("Items", colorize) {
		fmt.Fprintln(stdout, line)
	}
	rows := make([][]string, 0, len(resp.ItemStats)+1)
	for _, status := range []string{"pending", "available", "partial", "missing", "removed"} {
		if count, ok := resp.ItemStats[status]; ok && count > 0 {
			rows = append(rows, []string{status, strconv.Itoa(count)})
		}
	}
	if resp.NeedsReview > 0 {
		rows = append(rows, []string{"needs review", strconv.Itoa(resp.NeedsReview)})
	}
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "No tracked items")
	} else {
		fmt.Fprint(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
		fmt.Fprintln(stdout)
	}

	if len(resp.Dependencies) > 0 {
		fmt.Fprintln(stdout)
		for _, line := range renderSectionHeader("Dependencies", colorize) {
			fmt.Fprintln(stdout, line)
		}
		for _, dep := range resp.Dependencies {
			printDependencyLine(stdout, dep, colorize)
		}
	}
}

func printDependencySection(ctx *commandContext, stdout io.Writer, colorize bool) {
	cfg := ctx.configValue()
	if cfg == nil {
		return
	}
	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, dep := range deps.CheckSystemDeps(cfg) {
		printDependencyLine(stdout, ipc.DependencyStatus{
			Name:      dep.Name,
			Command:   dep.Command,
			Optional:  dep.Optional,
			Available: dep.Available,
			Detail:    dep.Detail,
		}, colorize)
	}
}

func printDependencyLine(stdout io.Writer, dep ipc.DependencyStatus, colorize bool) {
	if dep.Available {
		message := "Ready"
		if dep.Command != "" {
			message = fmt.Sprintf("Ready (%s)", dep.Command)
		}
		fmt.Fprintln(stdout, renderStatusLine(dep.Name, statusOK, message, colorize))
		return
	}
	detail := strings.TrimSpace(dep.Detail)
	if detail == "" {
		detail = "not available"
	}
	kind := statusError
	if dep.Optional {
		kind = statusWarn
	}
	fmt.Fprintln(stdout, renderStatusLine(dep.Name, kind, detail, colorize))
}

func launchDaemonProcess(ctx *commandContext) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	args := []string{"run"}
	if ctx.configFlag != nil {
		if path := strings.TrimSpace(*ctx.configFlag); path != "" {
			args = append(args, "--config", path)
		}
	}
	cmd := exec.Command(exe, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return cmd.Process.Release()
}

func waitForSocket(socket string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		client, err := ipc.Dial(socket)
		if err == nil {
			defer client.Close()
			resp, err := client.Start()
			if err != nil {
				return err
			}
			if !resp.Started && !strings.Contains(resp.Message, "already running") {
				return fmt.Errorf("daemon start: %s", resp.Message)
			}
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon did not come up within %s", timeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func readPIDFile(ctx *commandContext) (int, error) {
	cfg := ctx.configValue()
	if cfg == nil {
		return 0, fmt.Errorf("configuration unavailable")
	}
	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "tether.pid"))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
