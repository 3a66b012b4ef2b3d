package main

import (
	"os"
	"strings"

	"github.com/go-go-golems/glazed/pkg/help"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/threadview/pkg/doc"
)

var rootCmd = &cobra.Command{
	Use:   "threadview",
	Short: "threadview replays branching chat conversations and their retrieval progress",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	SilenceUsage: true,
}

// initConfig runs once the flags are parsed: --config picks the file, and the logger is set up
// from the merged flags, environment and config file.
func initConfig(cmd *cobra.Command) error {
	viper.SetEnvPrefix("threadview")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if configPath := viper.GetString("config"); configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.threadview")
		viper.AddConfigPath("/etc/threadview")
		if xdgConfigPath, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(xdgConfigPath + "/threadview")
		}
	}

	err := viper.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); !ok && err != nil {
		return err
	}

	err = initLogger(
		viper.GetString("log-level"),
		viper.GetBool("verbose"),
		viper.GetString("log-format"),
		viper.GetString("log-file"),
		viper.GetBool("with-caller"),
	)
	if err != nil {
		return err
	}

	log.Debug().Str("config", viper.ConfigFileUsed()).Msg("loaded configuration")
	return nil
}

func main() {
	helpSystem := help.NewHelpSystem()
	cobra.CheckErr(doc.AddDocToHelpSystem(helpSystem))

	helpFunc, usageFunc := help.GetCobraHelpUsageFuncs(helpSystem)
	helpTemplate, usageTemplate := help.GetCobraHelpUsageTemplates(helpSystem)
	rootCmd.SetHelpFunc(helpFunc)
	rootCmd.SetUsageFunc(usageFunc)
	rootCmd.SetHelpTemplate(helpTemplate)
	rootCmd.SetUsageTemplate(usageTemplate)
	rootCmd.SetHelpCommand(help.NewCobraHelpCommand(helpSystem))

	rootCmd.PersistentFlags().Bool("with-caller", false, "Log caller")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (json, text)")
	rootCmd.PersistentFlags().String("log-file", "", "Log file (default: stderr)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ~/.threadview/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")

	rootCmd.PersistentFlags().String("milestones-file", "", "YAML file replacing the built-in progress milestones")
	rootCmd.PersistentFlags().String("sibling-default", "latest", "Version shown when none was chosen (latest, first)")
	rootCmd.PersistentFlags().String("tokenizer-encoding", "", "tiktoken encoding used to count answer tokens, e.g. cl100k_base")

	rootCmd.AddCommand(newReplayCommand())
	rootCmd.AddCommand(newEstimateCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
