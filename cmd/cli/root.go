package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stealsift/stealsift/pkg/batch"
	"github.com/stealsift/stealsift/pkg/config"
	"github.com/stealsift/stealsift/pkg/parse"
	"github.com/stealsift/stealsift/pkg/process"
	"gopkg.in/yaml.v3"
)

var conf = &config.Config{
	MaxArchiveSize: config.DefaultMaxArchiveSize,
	ModDelay:       config.DefaultModDelay,
}

func initConfig() {
	if conf.Config == "" {
		path, err := config.GetConfigFile()
		if err != nil {
			logger.Error("could not create config file", slog.String("location", path))
		}
		conf.Config = path
	}
	viper.SetConfigFile(conf.Config)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		logger.Debug("can't read config", slog.String("error", err.Error()))
		return
	}
	if err := viper.Unmarshal(conf); err != nil {
		logger.Error("can't unmarshal config", slog.String("error", err.Error()))
	}
}

func initRoot(rootCmd *cobra.Command) {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&conf.Config, "config", "", "config file")
	rootCmd.PersistentFlags().StringVarP(&conf.Password, "password", "p", "", "archive password, comma separated candidate list, or password file (one per line)")
	rootCmd.PersistentFlags().StringVarP(&conf.Output, "output", "o", "", "JSON output file shared by the whole batch (default: one file per archive)")
	rootCmd.PersistentFlags().StringVar(&conf.MaxArchiveSize, "max-archive-size", config.DefaultMaxArchiveSize, "skip archives larger than this (e.g. '500MiB')")
	rootCmd.PersistentFlags().StringVar(&conf.Registry, "registry", "", "path to the processed-archive registry database (empty disables it)")
	rootCmd.PersistentFlags().BoolVarP(&conf.Debug, "debug", "d", conf.Debug, "print debug strings")

	watchCmd.PersistentFlags().DurationVar(&conf.ModDelay, "mod-delay", config.DefaultModDelay, "wait time after the last write before parsing a watched file")
}

var rootCmd = &cobra.Command{
	Use:   "stealsift",
	Short: "stealsift extracts credentials and system intelligence from stealer log archives",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		err = yaml.NewEncoder(os.Stdout).Encode(conf)
		if err != nil {
			logger.Error("error encode yaml conf", slog.String("err", err.Error()))
			return
		}
		if err = cmd.Usage(); err != nil {
			return
		}
		return
	},
}

func applyLogLevel() {
	if conf.Debug {
		LogLevel.Set(slog.LevelDebug)
		batch.LogLevel.Set(slog.LevelDebug)
		process.LogLevel.Set(slog.LevelDebug)
		parse.LogLevel.Set(slog.LevelDebug)
	}
}

func runnerConfig(target string) (cfg batch.Config, err error) {
	maxSize, err := conf.ParseMaxArchiveSize()
	if err != nil {
		return
	}
	primary, candidates := config.LoadPasswords(conf.Password)
	cfg = batch.Config{
		Target:         target,
		Output:         conf.Output,
		Password:       primary,
		Passwords:      candidates,
		MaxArchiveSize: maxSize,
		RegistryPath:   conf.Registry,
	}
	return
}
