// Package cmds wires the CLI: a YAML config file plus flag overrides feed
// the shared Config, then each subcommand drives the client or the full
// pipeline.
package cmds

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sdgrab/sd-xmltv/internal/config"
	"github.com/sdgrab/sd-xmltv/internal/logging"
)

var (
	cfgFile string

	conf *config.Config

	// Flag overrides. Zero values mean "not set"; initConfig only applies
	// the ones the user actually passed.
	flagUsername   string
	flagPassword   string
	flagCountry    string
	flagPostalCode string
	flagLineup     string
	flagURL        string
	flagTimezone   string
	flagLogFile    string
	flagLogLevel   string
	flagQuiet      bool
)

func init() {
	cobra.OnInitialize(initConfig)
}

func NewRootCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sd-xmltv",
		Short:         "Fetch TV listings from Schedules Direct and write an XMLTV guide.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.AddCommand(NewGrabCLI())
	rootCmd.AddCommand(NewLineupsCLI())
	rootCmd.AddCommand(NewHeadendsCLI())
	rootCmd.AddCommand(NewStatusCLI())

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "path to the YAML config file")
	pf.StringVarP(&flagUsername, "username", "u", "", "Schedules Direct username")
	pf.StringVarP(&flagPassword, "password", "p", "", "Schedules Direct password (hashed before use, never stored)")
	pf.StringVarP(&flagCountry, "country", "c", "", "ISO country code for lineup discovery, e.g. USA")
	pf.StringVarP(&flagPostalCode, "postal-code", "z", "", "postal code for lineup discovery")
	pf.StringVarP(&flagLineup, "lineup", "l", "", "lineup ID, e.g. USA-OTA-90210")
	pf.StringVar(&flagURL, "url", "", "API base URL override")
	pf.StringVar(&flagTimezone, "timezone", "", "IANA timezone for programme times (default: system)")
	pf.StringVar(&flagLogFile, "log-file", "", "write logs to this file with rotation")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "suppress stdout logging when a log file is set")

	return rootCmd
}

// initConfig loads the config file (if any) and layers the flag overrides on
// top, then installs the global logger. Runs after flag parsing, before any
// subcommand.
func initConfig() {
	var err error
	if cfgFile != "" {
		conf, err = config.Load(cfgFile)
		cobra.CheckErr(err)
	} else {
		conf = config.Default()
	}

	if flagUsername != "" {
		conf.Username = flagUsername
	}
	if flagPassword != "" {
		conf.Password = flagPassword
	}
	if flagCountry != "" {
		conf.Country = flagCountry
	}
	if flagPostalCode != "" {
		conf.PostalCode = flagPostalCode
	}
	if flagLineup != "" {
		conf.Lineup = flagLineup
	}
	if flagURL != "" {
		conf.URL = flagURL
	}
	if flagTimezone != "" {
		conf.Timezone = flagTimezone
	}
	if flagLogFile != "" {
		conf.Log.File = flagLogFile
	}
	if flagLogLevel != "" {
		conf.Log.Level = flagLogLevel
	}
	if flagQuiet {
		conf.Log.Quiet = true
	}
	if v := os.Getenv("SD_USERNAME"); v != "" && conf.Username == "" {
		conf.Username = v
	}
	if v := os.Getenv("SD_PASSWORD"); v != "" && conf.Password == "" && conf.PasswordSHA1 == "" {
		conf.Password = v
	}

	cobra.CheckErr(logging.Init(&conf.Log))
}
