package cmds

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func NewHeadendsCLI() *cobra.Command {
	return &cobra.Command{
		Use:   "headends",
		Short: "Discover available lineups for a country and postal code.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if conf.Country == "" || conf.PostalCode == "" {
				return errors.New("headends: --country and --postal-code are required")
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			headends, err := client.Headends(cmd.Context(), conf.Country, conf.PostalCode)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "HEADEND\tLINEUP\tNAME\tTRANSPORT\tLOCATION")
			for _, h := range headends {
				for _, l := range h.Lineups {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", h.Headend, l.Lineup, l.Name, h.Transport, h.Location)
				}
			}
			return w.Flush()
		},
	}
}
