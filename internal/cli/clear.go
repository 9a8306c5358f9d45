package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lydakis/richpresence/internal/control"
)

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear presence",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if client := ctx.holderClient(); client.Listening() {
				resp, err := sendHolder(client, &control.Request{Type: control.TypeClear})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared presence held by pid %d\n", resp.Status.PID)
				return nil
			}

			cfg, err := ctx.sessionConfig()
			if err != nil {
				return err
			}
			s, err := ctx.dial(cfg)
			if err != nil {
				return err
			}
			clearErr := s.ClearActivity()
			if err := s.Disconnect(); err != nil {
				ctx.log().Debug("disconnect after clear", slog.Any("error", err))
			}
			if clearErr != nil {
				return clearErr
			}
			fmt.Fprintln(out, "Presence cleared")
			return nil
		},
	}
}
