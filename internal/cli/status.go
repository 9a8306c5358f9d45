package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lydakis/richpresence/internal/control"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "status",
		Short:       "Show what a running holder is displaying",
		Args:        noArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := sendHolder(ctx.holderClient(), &control.Request{Type: control.TypeStatus})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, resp.Status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, statusRows(resp.Status), nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "stop",
		Short:       "Stop a running holder and release presence",
		Args:        noArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := sendHolder(ctx.holderClient(), &control.Request{Type: control.TypeStop}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Holder stopping")
			return nil
		},
	}
}

func statusRows(st *control.Status) [][]string {
	if st == nil {
		return nil
	}
	rows := [][]string{
		{"PID", strconv.Itoa(st.PID)},
		{"Client ID", st.ClientID},
		{"Holding since", time.Unix(st.Since, 0).Format(time.RFC3339)},
	}
	a := st.Activity
	if a == nil {
		return append(rows, []string{"Activity", "(cleared)"})
	}
	add := func(name, value string) {
		if value != "" {
			rows = append(rows, []string{name, value})
		}
	}
	add("State", a.State)
	add("Details", a.Details)
	add("Large image", a.Assets.LargeImage)
	add("Large text", a.Assets.LargeText)
	add("Small image", a.Assets.SmallImage)
	add("Small text", a.Assets.SmallText)
	if a.Timestamps != nil && a.Timestamps.Start != 0 {
		add("Started", time.Unix(a.Timestamps.Start, 0).Format(time.RFC3339))
	}
	if a.Timestamps != nil && a.Timestamps.End != 0 {
		add("Ends", time.Unix(a.Timestamps.End, 0).Format(time.RFC3339))
	}
	labels := make([]string, 0, len(a.Buttons))
	for _, b := range a.Buttons {
		labels = append(labels, b.Label)
	}
	add("Buttons", strings.Join(labels, ", "))
	return rows
}
