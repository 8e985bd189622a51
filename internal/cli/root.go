// Package cli wires the cobra command boundary to the container runner.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jakenelson/pydock/internal/config"
)

var (
	cfgFile   string
	verbosity int
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pydock",
	Short: "Run in-progress python code in ephemeral Docker containers",
	Long: `Pydock launches ephemeral Docker containers to run or shell into the
python project you are working on. The source directory is mounted at /src
and any auxiliary local packages are mounted read-only under /pypath, with
PYTHONPATH pointed at it so they resolve inside the container.

Examples:
  pydock run py3-dev "python3 setup.py test"        # Run in the current directory
  pydock run -p ~/libs/netlib py3-dev pytest        # Mount an extra package
  pydock shell py3-dev ~/projects/app               # Interactive shell
  pydock run --publish 9090:8080 py3-dev "python3 -m http.server 8080"`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger(verbosity)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/pydock/config.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase logging verbosity; repeat for debug output")

	// Flags shared by run and shell
	rootCmd.PersistentFlags().Bool("keep", false, "keep the container after it exits instead of removing it")
	rootCmd.PersistentFlags().StringArrayP("py-package", "p", nil, "python package directory to mount read-only and add to PYTHONPATH (repeatable)")
	rootCmd.PersistentFlags().StringArray("mount", nil, "additional mount as HOST:CONTAINER[:MODE] (repeatable)")
	rootCmd.PersistentFlags().StringArrayP("env", "e", nil, "environment variable as NAME=VALUE (repeatable)")
	rootCmd.PersistentFlags().String("network", "", "docker network to attach the container to")
	rootCmd.PersistentFlags().StringArray("publish", nil, "publish a container port as HOST:CONTAINER (repeatable)")
	rootCmd.PersistentFlags().String("memory", "", "container memory limit, e.g. 4g")

	viper.BindPFlag("docker.network", rootCmd.PersistentFlags().Lookup("network"))
	viper.BindPFlag("docker.memory_limit", rootCmd.PersistentFlags().Lookup("memory"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Warning: could not find home directory:", err)
			return
		}

		viper.AddConfigPath(home + "/.config/pydock")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PYDOCK")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintln(os.Stderr, "Warning: error reading config file:", err)
		}
	}

	cfg = config.Load()
}

func setupLogger(verbosity int) {
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(false)

	switch verbosity {
	case 0:
		log.SetLevel(log.WarnLevel)
	case 1:
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.DebugLevel)
	}
}
