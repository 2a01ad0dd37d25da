package cmd

import (
	"os"
	"path/filepath"

	"github.com/seferino-fernandez/scripts/logging"

	"github.com/spf13/cobra"
)

var scaffoldLogDir string

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold",
	Short: "Run the empty logging template",
	Long: `Open a per-run log file, log the start and the end of an empty body, and
exit. This is the skeleton every bootstrap script follows: each line goes to
stderr and to <log-dir>/<name>_<YYYYMMDD>_<HHMMSS>_<pid>.log.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		script := filepath.Base(os.Args[0])

		runLog, err := logging.SetupRunLog(scaffoldLogDir, os.Args[0])
		if err == nil {
			defer runLog.Close()
		}

		log.Info("Starting %s", script)
		log.Info("Completed %s", script)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scaffoldCmd)

	scaffoldCmd.Flags().StringVar(&scaffoldLogDir, "log-dir", logging.DefaultRunLogDir, "Directory for the per-run log file")
}
