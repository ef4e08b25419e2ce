package cmds

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sdgrab/sd-xmltv/internal/sdjson"
)

// newClient builds an API client from the shared config. Used by the
// account-level subcommands; grab goes through the pipeline instead.
func newClient() (*sdjson.Client, error) {
	if err := conf.ValidateCredentials(); err != nil {
		return nil, err
	}
	return sdjson.NewClient(sdjson.Options{
		BaseURL:           conf.URL,
		Username:          conf.Username,
		PasswordSHA1:      conf.PasswordSHA1,
		Headers:           conf.Headers,
		RequestsPerSecond: conf.RequestsPerSecond,
	})
}

func NewLineupsCLI() *cobra.Command {
	return &cobra.Command{
		Use:   "lineups",
		Short: "List the lineups registered to the account.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			lineups, err := client.Lineups(cmd.Context())
			if err != nil {
				return err
			}
			if len(lineups) == 0 {
				fmt.Println("no lineups registered; add one on schedulesdirect.org or find one with the headends command")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "LINEUP\tNAME\tTRANSPORT\tLOCATION")
			for _, l := range lineups {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.Lineup, l.Name, l.Transport, l.Location)
			}
			return w.Flush()
		},
	}
}
