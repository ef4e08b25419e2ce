package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewStatusCLI() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show account status and service health.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("account expires: %s\n", status.Account.Expires)
			fmt.Printf("max lineups:     %d\n", status.Account.MaxLineups)
			for _, m := range status.Account.Messages {
				fmt.Printf("message:         %s\n", m)
			}
			for _, l := range status.Lineups {
				fmt.Printf("lineup:          %s (%s)\n", l.Lineup, l.Name)
			}
			for _, s := range status.SystemStatus {
				fmt.Printf("service:         %s %s %s\n", s.Date, s.Status, s.Message)
			}
			return nil
		},
	}
}
