/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is reported by --version
const Version = "1.1.0"

const banner = `
   _ __   __ _ _ __   ___   ___ ___  _ __ ___
  | '_ \ / _` + "`" + ` | '_ \ / _ \ / __/ _ \| '_ ` + "`" + ` _ \
  | | | | (_| | | | | (_) | (_| (_) | | | | | |
  |_| |_|\__,_|_| |_|\___/ \___\___/|_| |_| |_|

  An ultra simple serial client.`

var (
	cfgFile string
	log     = logrus.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nanocom",
	Short: "An ultra simple serial client",
	Long: banner + `

  A single SIGINT is sent to the device as Ctrl-C. Two within a second,
  SIGTERM or SIGHUP end the session.`,
	Version: Version,
	Example: `  nanocom -p /dev/ttyUSB0
  nanocom -p /dev/ttyACM0 -b 9600 -c G
  nanocom -p /dev/ttyUSB0 -m '	=<TAB>' -m 'q='`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSessionSettings(cmd, viper.GetString("port"))
		if err != nil {
			return err
		}
		return runSession(settings, stdio())
	},
}

// Execute adds all child commands to the root command and runs it. The
// returned error has already been reported on stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(logrus.WarnLevel)

	// Help and version go to the diagnostic stream, data only ever to stdout
	rootCmd.SetOut(os.Stderr)
	rootCmd.SetErr(os.Stderr)
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/nanocom/config.yaml)")
	flags.Bool("debug", false, "Log bridge and port details to stderr")

	flags.StringP("port", "p", "", "The serial port. Examples include /dev/ttyUSB0 or /dev/ttyACM0.")
	flags.IntP("baudrate", "b", 115200, "The baudrate of the serial port")
	flags.StringP("exit-char", "c", "]", "The exit character (A to Z, [, \\, ], or _) where Ctrl+CHAR is used to exit")
	flags.StringArrayP("map", "m", nil, "Send VALUE when KEY is typed, given as KEY=VALUE. May be repeated.")
	flags.String("encoding", "utf-8", "Character encoding of the remote device (IANA name)")
	flags.Bool("transcode", false, "Convert received text from --encoding to UTF-8 instead of writing the bytes through")
	flags.Int("read-size", 4096, "Maximum number of bytes taken from the port per read")
	flags.Bool("dtr", false, "Initial DTR line state (left unchanged unless given)")
	flags.Bool("rts", false, "Initial RTS line state (left unchanged unless given)")
	flags.Bool("sync-writes", false, "Open the port with O_SYNC so each write reaches the device before returning")
	flags.Bool("flush", false, "Discard input the port received before the session started")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

// loadConfig reads the config file and environment into viper. Flags bound in
// init take precedence over both.
func loadConfig(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(dir, "nanocom"))
		}
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("nanocom")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	if viper.GetBool("debug") {
		log.SetLevel(logrus.DebugLevel)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		log.WithField("file", used).Debug("config loaded")
	}
	return nil
}
