package cli

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type refreshSummary struct {
	ID         uuid.UUID `json:"id"`
	LocationID uuid.UUID `json:"location_id"`
	State      string    `json:"state"`
	Total      int       `json:"total"`
	Pending    int       `json:"pending"`
	Hydrated   int       `json:"hydrated"`
	Failed     int       `json:"failed"`
	Discarded  int       `json:"discarded"`
	Superseded bool      `json:"superseded"`
	Canceled   bool      `json:"canceled"`
	Error      string    `json:"error,omitempty"`
}

func refreshCommand(newClient func() *Client) *cobra.Command {
	var (
		wait   bool
		status bool
	)
	cmd := &cobra.Command{
		Use:   "refresh <pin-id>",
		Short: "Replace a pin's photos with a new random page of nearby photos",
		Example: `  albumctl refresh 4f0c...  --wait
  albumctl refresh 4f0c...  --status`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid pin id %q: %w", args[0], err)
			}
			path := "/api/v1/locations/" + id.String() + "/refresh"

			var summary refreshSummary
			if status {
				err = newClient().Call(cmd.Context(), http.MethodGet, path, nil, &summary)
			} else {
				err = newClient().Call(cmd.Context(), http.MethodPost, path+"?wait="+strconv.FormatBool(wait), nil, &summary)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "refresh %s %s: %d photos, %d hydrated, %d failed, %d pending\n",
				summary.ID, summary.State, summary.Total, summary.Hydrated, summary.Failed, summary.Pending)
			if summary.Error != "" {
				return fmt.Errorf("refresh failed: %s", summary.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until every photo is hydrated")
	cmd.Flags().BoolVar(&status, "status", false, "Show the latest refresh instead of starting one")
	cmd.MarkFlagsMutuallyExclusive("wait", "status")
	return cmd
}
