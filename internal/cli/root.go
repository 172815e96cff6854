// Package cli implements albumctl, the operator command line for the album service.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/httpclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultServer = "http://localhost:8080"

// Settings holds the global flags.
type Settings struct {
	Server  string
	Timeout time.Duration
}

// RootCommand creates and returns the root command.
func RootCommand() *cobra.Command {
	settings := &Settings{}
	v := viper.New()
	v.SetEnvPrefix("ALBUM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("server", defaultServer)
	v.SetDefault("timeout", 30*time.Second)

	rootCmd := &cobra.Command{
		Use:           "albumctl",
		Short:         "Manage pins and photo albums of the album service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&settings.Server, "server", defaultServer, "Album service base URL (env ALBUM_SERVER)")
	rootCmd.PersistentFlags().DurationVar(&settings.Timeout, "timeout", 30*time.Second, "Per request timeout (env ALBUM_TIMEOUT)")
	_ = v.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = v.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		settings.Server = v.GetString("server")
		settings.Timeout = v.GetDuration("timeout")
		if settings.Server == "" {
			return fmt.Errorf("server URL must not be empty")
		}
		return nil
	}

	newClient := func() *Client {
		return NewClient(settings.Server, httpclient.New(&httpclient.Config{
			DefaultTimeout: settings.Timeout,
			UserAgent:      "albumctl",
		}))
	}

	rootCmd.AddCommand(
		pinsCommand(newClient),
		refreshCommand(newClient),
		viewportCommand(newClient),
	)
	return rootCmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
