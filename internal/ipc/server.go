package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"log/slog"

	"tether/internal/daemon"
	"tether/internal/logging"
	"tether/internal/store"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Tether", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun tether stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.DowngradesPaused = status.Scheduler.DowngradesPaused
	resp.UnknownStreak = status.Scheduler.UnknownStreak
	resp.LastError = status.Scheduler.LastError
	resp.DBPath = status.DBPath
	resp.LockPath = status.LockFilePath
	resp.PID = os.Getpid()
	if !status.Scheduler.LastPassAt.IsZero() {
		resp.LastPassAt = status.Scheduler.LastPassAt.Format(timeLayout)
	}
	if last := status.Scheduler.LastResult; last != nil {
		resp.LastPass = &PassSummary{
			PassID:        last.PassID,
			Skipped:       last.Skipped,
			Registered:    last.Registered,
			Refreshed:     last.Refreshed,
			Revived:       last.Revived,
			ToAvailable:   last.ToAvailable,
			ToPartial:     last.ToPartial,
			ToMissing:     last.ToMissing,
			ToRemoved:     last.ToRemoved,
			ReviewFlagged: last.ReviewFlagged,
			ItemErrors:    last.ItemErrors,
			DurationMS:    last.Duration.Milliseconds(),
		}
	}

	health, err := s.daemon.ItemHealth(s.ctx)
	if err != nil {
		resp.LastError = err.Error()
	} else {
		resp.ItemStats = map[string]int{
			string(store.StatusPending):   health.Pending,
			string(store.StatusAvailable): health.Available,
			string(store.StatusPartial):   health.Partial,
			string(store.StatusMissing):   health.Missing,
			string(store.StatusRemoved):   health.Removed,
		}
		resp.NeedsReview = health.NeedsReview
	}

	for _, dep := range status.Deps {
		resp.Dependencies = append(resp.Dependencies, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return nil
}

func (s *service) ItemsList(req ItemsListRequest, resp *ItemsListResponse) error {
	statuses := make([]store.Status, 0, len(req.Statuses))
	for _, status := range req.Statuses {
		parsed, ok := store.ParseStatus(status)
		if !ok {
			return fmt.Errorf("unknown status %q", status)
		}
		statuses = append(statuses, parsed)
	}
	items, err := s.daemon.ListItems(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Items = make([]Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		resp.Items = append(resp.Items, FromItem(item))
	}
	return nil
}

func (s *service) ItemDescribe(req ItemDescribeRequest, resp *ItemDescribeResponse) error {
	hash := strings.TrimSpace(req.Hash)
	if hash == "" {
		return errors.New("item describe requires a hash")
	}
	item, err := s.daemon.GetItem(s.ctx, hash)
	if err != nil {
		return err
	}
	resp.Item = FromItem(item)
	return nil
}

func (s *service) Reconcile(_ ReconcileRequest, resp *ReconcileResponse) error {
	s.log().Debug("manual reconcile requested")
	if err := s.daemon.ReconcileNow(); err != nil {
		resp.Triggered = false
		resp.Message = err.Error()
		return nil
	}
	resp.Triggered = true
	resp.Message = "reconciliation pass triggered"
	s.log().Info("reconciliation triggered via IPC",
		logging.String(logging.FieldEventType, "reconcile_triggered"))
	return nil
}

func (s *service) ReviewReset(req ReviewResetRequest, resp *ReviewResetResponse) error {
	hash := strings.TrimSpace(req.Hash)
	if hash == "" {
		return errors.New("review reset requires a hash")
	}
	if err := s.daemon.ResetReview(s.ctx, hash); err != nil {
		return err
	}
	resp.Reset = true
	s.log().Info("review flag cleared",
		logging.String(logging.FieldItemHash, strings.ToUpper(hash)),
		logging.String(logging.FieldEventType, "review_reset"))
	return nil
}

func (s *service) Purge(req PurgeRequest, resp *PurgeResponse) error {
	s.log().Debug("purge requested", logging.Int("older_than_days", req.OlderThanDays))
	removed, err := s.daemon.PurgeRemoved(s.ctx, time.Duration(req.OlderThanDays)*24*time.Hour)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("removed rows purged",
		logging.String(logging.FieldEventType, "purge"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.SchemaVersion = health.SchemaVersion
	resp.TableExists = health.TableExists
	resp.ColumnsPresent = append(resp.ColumnsPresent, health.ColumnsPresent...)
	resp.MissingColumns = append(resp.MissingColumns, health.MissingColumns...)
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalItems = health.TotalItems
	resp.Error = health.Error
	if err != nil {
		return err
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
