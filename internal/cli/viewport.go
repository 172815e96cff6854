package cli

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

type viewport struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	LatitudeDelta  float64   `json:"latitude_delta"`
	LongitudeDelta float64   `json:"longitude_delta"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func viewportCommand(newClient func() *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viewport",
		Short: "Show or save the last viewed map region",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show the saved map region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var v viewport
			if err := newClient().Call(cmd.Context(), http.MethodGet, "/api/v1/settings/viewport", nil, &v); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}

	var req viewport
	set := &cobra.Command{
		Use:   "set",
		Short: "Save a map region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]float64{
				"latitude":        req.Latitude,
				"longitude":       req.Longitude,
				"latitude_delta":  req.LatitudeDelta,
				"longitude_delta": req.LongitudeDelta,
			}
			var saved viewport
			if err := newClient().Call(cmd.Context(), http.MethodPut, "/api/v1/settings/viewport", body, &saved); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), saved)
		},
	}
	set.Flags().Float64Var(&req.Latitude, "lat", 0, "Center latitude")
	set.Flags().Float64Var(&req.Longitude, "lon", 0, "Center longitude")
	set.Flags().Float64Var(&req.LatitudeDelta, "lat-delta", 0, "Visible latitude span")
	set.Flags().Float64Var(&req.LongitudeDelta, "lon-delta", 0, "Visible longitude span")
	for _, name := range []string{"lat", "lon", "lat-delta", "lon-delta"} {
		_ = set.MarkFlagRequired(name)
	}

	cmd.AddCommand(get, set)
	return cmd
}
