package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lydakis/richpresence/internal/activity"
	"github.com/lydakis/richpresence/internal/control"
	"github.com/lydakis/richpresence/internal/daemon"
	"github.com/lydakis/richpresence/internal/paths"
)

var (
	nowFn    = time.Now
	holdFn   = daemon.Hold
	detachFn = daemon.Detach
)

type setOptions struct {
	state      string
	details    string
	largeImage string
	largeText  string
	smallImage string
	smallText  string
	buttons    []string
	elapsed    bool
	start      int64
	end        int64
	duration   time.Duration
	detach     bool
}

func newSetCommand(ctx *commandContext) *cobra.Command {
	var opts setOptions

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set presence and hold it until interrupted",
		Long: "Set presence from the config defaults and flags, then keep the session open " +
			"until SIGINT/SIGTERM or --for elapses. If a holder is already running it is updated instead.",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.sessionConfig()
			if err != nil {
				return err
			}

			act, err := opts.build(cmd, cfg.Activity.Build(nowFn()))
			if err != nil {
				return err
			}
			if err := activity.Validate(act); err != nil {
				return &usageError{err: fmt.Errorf("invalid activity: %w", err)}
			}

			out := cmd.OutOrStdout()
			if client := ctx.holderClient(); client.Listening() {
				resp, err := sendHolder(client, &control.Request{Type: control.TypeUpdate, Activity: act})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Updated presence held by pid %d\n", resp.Status.PID)
				return nil
			}

			if opts.detach {
				st, err := detachFn(detachedArgs(ctx.args), paths.ControlSocketPath())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Holding presence in the background (pid %d)\n", st.PID)
				return nil
			}

			return holdFn(cmd.Context(), daemon.HoldOptions{
				ClientID: cfg.ClientID,
				Activity: act,
				Locator:  ctx.locator(cfg),
				Logger:   ctx.log(),
				Duration: opts.duration,
				Ready: func() {
					fmt.Fprintln(out, "Presence set; press Ctrl-C to clear")
				},
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.state, "state", "", "Current party status line")
	f.StringVar(&opts.details, "details", "", "What the user is doing")
	f.StringVar(&opts.largeImage, "large-image", "", "Large image asset key")
	f.StringVar(&opts.largeText, "large-text", "", "Large image hover text")
	f.StringVar(&opts.smallImage, "small-image", "", "Small image asset key")
	f.StringVar(&opts.smallText, "small-text", "", "Small image hover text")
	f.StringArrayVar(&opts.buttons, "button", nil, "Link button as LABEL=URL (repeatable, max 2)")
	f.BoolVar(&opts.elapsed, "elapsed", false, "Show time elapsed since now")
	f.Int64Var(&opts.start, "start", 0, "Start timestamp (unix seconds)")
	f.Int64Var(&opts.end, "end", 0, "End timestamp (unix seconds)")
	f.DurationVar(&opts.duration, "for", 0, "Release presence after this long")
	f.BoolVar(&opts.detach, "detach", false, "Hold presence from a background process")
	return cmd
}

// build overlays changed flags on the configured defaults.
func (o *setOptions) build(cmd *cobra.Command, act *activity.Activity) (*activity.Activity, error) {
	changed := cmd.Flags().Changed
	if changed("state") {
		act.SetState(o.state)
	}
	if changed("details") {
		act.SetDetails(o.details)
	}
	if changed("large-image") {
		act.SetLargeImage(o.largeImage)
	}
	if changed("large-text") {
		act.SetLargeText(o.largeText)
	}
	if changed("small-image") {
		act.SetSmallImage(o.smallImage)
	}
	if changed("small-text") {
		act.SetSmallText(o.smallText)
	}
	if changed("button") {
		act.Buttons = nil
		for _, raw := range o.buttons {
			label, url, ok := strings.Cut(raw, "=")
			if !ok {
				return nil, usageErrorf("--button %q: want LABEL=URL", raw)
			}
			act.AddButton(strings.TrimSpace(label), strings.TrimSpace(url))
		}
	}

	switch {
	case changed("start") || changed("end"):
		act.SetTimestamps(o.start, o.end)
	case o.elapsed:
		act.SetTimestamps(nowFn().Unix(), 0)
	}
	return act, nil
}

func detachedArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}
