package cmds

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sdgrab/sd-xmltv/internal/guide"
	"github.com/sdgrab/sd-xmltv/internal/metrics"
)

var (
	flagDays   int
	flagOutput string
)

func NewGrabCLI() *cobra.Command {
	grabCmd := &cobra.Command{
		Use:   "grab",
		Short: "Run the full pipeline and write the XMLTV guide file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagDays > 0 {
				conf.Days = flagDays
			}
			if cmd.Flags().Changed("output") {
				conf.Output = flagOutput
			}
			if err := conf.Validate(); err != nil {
				return err
			}

			if conf.MetricsAddr != "" {
				shutdown := metrics.Serve(conf.MetricsAddr)
				defer shutdown(cmd.Context())
			}

			doc, err := guide.Run(cmd.Context(), conf)
			if err != nil {
				return err
			}
			zap.L().Info("grab complete",
				zap.Int("channels", len(doc.Channels)),
				zap.Int("programmes", len(doc.Programmes)))
			return nil
		},
	}

	grabCmd.Flags().IntVarP(&flagDays, "days", "T", 0, "days of listings to fetch (default 15)")
	grabCmd.Flags().StringVarP(&flagOutput, "output", "X", "", `output file; ".gz"/".br" compress, "" builds without writing`)

	return grabCmd
}
