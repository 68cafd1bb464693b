package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"

	"vistoria/cmd/client/cmd/cli"
	"vistoria/cmd/client/cmd/inspection"
	syncCmd "vistoria/cmd/client/cmd/sync"
	"vistoria/internal/app/client"
	"vistoria/internal/app/client/config"
	"vistoria/internal/utils/logger"
)

var (
	cfgFile   string
	debug     bool
	serverURL string
	app       *client.App
)

var rootCmd = &cobra.Command{
	Use:   "vistoria",
	Short: "Vistoria - офлайн клиент осмотров недвижимости",
	Long: `Vistoria - клиент инспектора для работы без сети.

Осмотры сохраняются в локальную очередь и отправляются на сервер
пакетами, когда появляется соединение. Ошибки отдельных осмотров
не мешают синхронизации остальных.`,
	PersistentPreRunE: setupApp,
	PersistentPostRun: teardownApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", cli.Fail("Ошибка:"), err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	} else if level == "" || level == "info" {
		// вывод команд не смешивается с info логами
		level = "warn"
	}
	log := logger.NewWithLevel(cfg.Env, level).With(slog.String("app", "vistoria-client"))

	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	cmd.SetContext(cli.WithApp(cmd.Context(), app))
	return nil
}

func teardownApp(_ *cobra.Command, _ []string) {
	if app != nil {
		app.Shutdown()
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		viper.AddConfigPath(filepath.Join(home, ".vistoria"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return config.Load()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл (yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().BoolVar(&cli.JSONOutput, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server-address", "", "адрес сервера (host:port)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(inspection.InspectionCmd)
	rootCmd.AddCommand(syncCmd.SyncCmd)
}
