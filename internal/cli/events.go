package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lydakis/richpresence/internal/ipc"
)

func newEventsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "events",
		Short:       "List the event kinds accepted by watch",
		Args:        noArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			events := ipc.Events()
			if asJSON {
				return writeJSON(cmd, events)
			}

			rows := make([][]string, 0, len(events))
			for i, ev := range events {
				rows = append(rows, []string{strconv.Itoa(i + 1), ev.String(), eventGroup(ev)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Event", "Group"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the list as JSON")
	return cmd
}

// eventGroup is the leading word of an event name, e.g. LOBBY for
// LOBBY_MEMBER_CONNECT.
func eventGroup(ev ipc.Event) string {
	group, _, _ := strings.Cut(ev.String(), "_")
	return group
}
