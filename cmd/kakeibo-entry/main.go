package main

import (
	"os"

	"github.com/spf13/cobra"

	"kakeibo/cmd/kakeibo-entry/cmd"
	"kakeibo/internal/cli"
	"kakeibo/internal/config"
	"kakeibo/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentForm,
		Output:    os.Stderr,
	})

	settings := cmd.NewSettings(logger)

	rootCmd := &cobra.Command{
		Use:          "kakeibo-entry",
		Short:        "Enter household expenses from the terminal",
		SilenceUsage: true,
	}
	settings.Bind(rootCmd)

	rootCmd.AddCommand(cmd.ShellCmd(settings))
	rootCmd.AddCommand(cmd.SubmitCmd(settings))
	rootCmd.AddCommand(cmd.OptionsCmd(settings))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
