package cli

import (
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type pin struct {
	ID           uuid.UUID `json:"id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	PhotoCount   int64     `json:"photo_count"`
	PendingCount int64     `json:"pending_count"`
	Refreshing   bool      `json:"refreshing"`
	CreatedAt    time.Time `json:"created_at"`
}

func pinsCommand(newClient func() *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pins",
		Short: "List, add and delete pins",
	}
	cmd.AddCommand(pinsListCommand(newClient), pinsAddCommand(newClient), pinsDeleteCommand(newClient))
	return cmd
}

func pinsListCommand(newClient func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every pin with its photo counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var pins []pin
			if err := newClient().Call(cmd.Context(), http.MethodGet, "/api/v1/locations", nil, &pins); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLATITUDE\tLONGITUDE\tPHOTOS\tPENDING\tREFRESHING")
			for _, p := range pins {
				fmt.Fprintf(tw, "%s\t%.6f\t%.6f\t%d\t%d\t%t\n",
					p.ID, p.Latitude, p.Longitude, p.PhotoCount, p.PendingCount, p.Refreshing)
			}
			return tw.Flush()
		},
	}
}

func pinsAddCommand(newClient func() *Client) *cobra.Command {
	var (
		lat, lon float64
		prefetch bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Drop a pin at a coordinate",
		Example: `  albumctl pins add --lat 52.52 --lon 13.405
  albumctl pins add --lat 48.8566 --lon 2.3522 --prefetch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]interface{}{
				"latitude":  lat,
				"longitude": lon,
				"prefetch":  prefetch,
			}
			var created pin
			if err := newClient().Call(cmd.Context(), http.MethodPost, "/api/v1/locations", req, &created); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), created)
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude in degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude in degrees")
	cmd.Flags().BoolVar(&prefetch, "prefetch", false, "Start a photo refresh right away")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func pinsDeleteCommand(newClient func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <pin-id>",
		Short: "Delete a pin and its photos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid pin id %q: %w", args[0], err)
			}
			if err := newClient().Call(cmd.Context(), http.MethodDelete, "/api/v1/locations/"+id.String(), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		},
	}
}
