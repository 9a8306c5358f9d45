package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/lydakis/richpresence/internal/activity"
	"github.com/lydakis/richpresence/internal/control"
	"github.com/lydakis/richpresence/internal/ipc"
	"github.com/lydakis/richpresence/internal/paths"
	"github.com/lydakis/richpresence/internal/session"
)

// ErrAlreadyHolding is returned when another process holds the presence lock.
var ErrAlreadyHolding = errors.New("another richpresence process is already holding presence")

// HoldOptions configures Hold.
type HoldOptions struct {
	ClientID string
	Activity *activity.Activity
	Locator  ipc.Locator
	Logger   *slog.Logger
	// LockPath defaults to paths.LockPath().
	LockPath string
	// ControlSocket defaults to paths.ControlSocketPath().
	ControlSocket string
	// Duration bounds how long presence is held; zero holds until a signal.
	Duration time.Duration
	// Ready, when set, is called once presence is shown and the control
	// socket accepts requests.
	Ready func()
}

var notifyContextFn = func(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

// holder serves control requests against the live session.
type holder struct {
	sess     *session.Session
	clientID string
	since    time.Time
	stop     context.CancelFunc
	logger   *slog.Logger

	mu      sync.Mutex
	current *activity.Activity
}

// Hold sets the activity and keeps the session open until ctx is done, a
// signal arrives, a stop request comes in on the control socket, or Duration
// elapses. The desktop client clears presence when the session closes, so the
// process must stay alive to keep it shown.
func Hold(ctx context.Context, opts HoldOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("component", "daemon"))

	lockPath, socketPath := opts.LockPath, opts.ControlSocket
	if lockPath == "" || socketPath == "" {
		if err := paths.EnsureDir(paths.RuntimeDir()); err != nil {
			return fmt.Errorf("creating runtime dir: %w", err)
		}
	}
	if lockPath == "" {
		lockPath = paths.LockPath()
	}
	if socketPath == "" {
		socketPath = paths.ControlSocketPath()
	}

	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyHolding
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release presence lock", slog.Any("error", err))
		}
	}()

	sessOpts := []session.Option{session.WithLogger(logger)}
	if opts.Locator != nil {
		sessOpts = append(sessOpts, session.WithLocator(opts.Locator))
	}
	s, err := session.Dial(opts.ClientID, sessOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Disconnect(); err != nil {
			logger.Warn("disconnect failed", slog.Any("error", err))
		}
	}()

	if err := s.SetActivity(opts.Activity); err != nil {
		return fmt.Errorf("setting activity: %w", err)
	}

	waitCtx, stop := notifyContextFn(ctx)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(waitCtx, opts.Duration)
		defer cancel()
	}

	h := &holder{
		sess:     s,
		clientID: opts.ClientID,
		since:    time.Now(),
		stop:     stop,
		logger:   logger,
		current:  opts.Activity.Clone(),
	}
	srv := control.NewServer(socketPath, h.handle)
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()

	logger.Info("presence set", slog.String("control", socketPath))
	if opts.Ready != nil {
		opts.Ready()
	}
	<-waitCtx.Done()

	logger.Info("releasing presence")
	if err := s.ClearActivity(); err != nil {
		logger.Debug("clearing activity before disconnect", slog.Any("error", err))
	}
	return nil
}

func (h *holder) handle(_ context.Context, req *control.Request) *control.Response {
	h.logger.Debug("control request", slog.String("type", req.Type))
	switch req.Type {
	case control.TypeStatus:
		return &control.Response{Status: h.status()}
	case control.TypeUpdate:
		if err := h.sess.SetActivity(req.Activity); err != nil {
			code := control.ExitRuntime
			if req.Activity == nil || activity.Validate(req.Activity) != nil {
				code = control.ExitUsageErr
			}
			return &control.Response{ExitCode: code, Stderr: err.Error()}
		}
		h.mu.Lock()
		h.current = req.Activity.Clone()
		h.mu.Unlock()
		return &control.Response{Status: h.status()}
	case control.TypeClear:
		if err := h.sess.ClearActivity(); err != nil {
			return &control.Response{ExitCode: control.ExitRuntime, Stderr: err.Error()}
		}
		h.mu.Lock()
		h.current = nil
		h.mu.Unlock()
		return &control.Response{Status: h.status()}
	case control.TypeStop:
		go h.stop()
		return &control.Response{}
	default:
		return &control.Response{ExitCode: control.ExitUsageErr, Stderr: fmt.Sprintf("unknown request type: %s", req.Type)}
	}
}

func (h *holder) status() *control.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return &control.Status{
		PID:      os.Getpid(),
		ClientID: h.clientID,
		Since:    h.since.Unix(),
		Activity: h.current.Clone(),
	}
}
