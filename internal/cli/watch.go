package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lydakis/richpresence/internal/ipc"
)

var notifyContextFn = func(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

// watchedEvent is one printed line of watch output.
type watchedEvent struct {
	Event ipc.Event       `json:"evt"`
	Cmd   string          `json:"cmd"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch EVENT...",
		Short: "Print the next occurrence of each named event",
		Long: "Connect, subscribe to each EVENT and print it as a JSON line when it arrives. " +
			"Exits once every event has been seen, on SIGINT/SIGTERM, or when --timeout elapses. " +
			"Run `richpresence events` for the accepted names.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageErrorf("watch needs at least one EVENT")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := make([]ipc.Event, 0, len(args))
			for _, a := range args {
				ev, err := ipc.ParseEvent(a)
				if err != nil {
					return &usageError{err: err}
				}
				kinds = append(kinds, ev)
			}
			if interval <= 0 {
				return usageErrorf("--interval must be positive")
			}

			cfg, err := ctx.sessionConfig()
			if err != nil {
				return err
			}
			s, err := ctx.dial(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := s.Disconnect(); err != nil {
					ctx.log().Debug("disconnect after watch", slog.Any("error", err))
				}
			}()

			printer := &eventPrinter{out: cmd.OutOrStdout()}
			var pending sync.WaitGroup
			for _, kind := range kinds {
				pending.Add(1)
				if err := s.On(kind, func(m ipc.Message) {
					defer pending.Done()
					printer.print(kind, m)
				}); err != nil {
					return err
				}
				// READY already arrived during the handshake.
				if kind == ipc.EventReady {
					continue
				}
				if err := s.Subscribe(kind); err != nil {
					return fmt.Errorf("subscribe %s: %w", kind, err)
				}
			}

			allSeen := make(chan struct{})
			go func() {
				pending.Wait()
				close(allSeen)
			}()

			waitCtx, stop := notifyContextFn(cmd.Context())
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				waitCtx, cancel = context.WithTimeout(waitCtx, timeout)
				defer cancel()
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-allSeen:
					return printer.err()
				case <-waitCtx.Done():
					if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
						return fmt.Errorf("timed out after %s waiting for events", timeout)
					}
					return printer.err()
				case <-ticker.C:
					if err := s.Ping(); err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Second, "How often to poll for pushed events")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits forever)")
	return cmd
}

type eventPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	writeErr error
}

func (p *eventPrinter) print(kind ipc.Event, m ipc.Message) {
	line := watchedEvent{Event: kind}
	if in, ok := m.(ipc.IncomingCommand); ok {
		line.Cmd = in.Cmd
		line.Data = in.Data
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := json.NewEncoder(p.out).Encode(line); err != nil && p.writeErr == nil {
		p.writeErr = err
	}
}

func (p *eventPrinter) err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeErr
}
