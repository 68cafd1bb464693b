package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vistoria/cmd/client/cmd/cli"
)

var (
	initVistoriador string
	initEmpresa     string
	initDeviceName  string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Первоначальная настройка клиента",
	Long: `Команда init сохраняет идентификаторы инспектора и компании в
конфигурационный файл и проверяет соединение с сервером.

Без сети клиент продолжает работать: осмотры копятся в очереди до
следующей синхронизации.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cli.App(cmd.Context())
		if err != nil {
			return err
		}
		if initVistoriador == "" || initEmpresa == "" {
			return fmt.Errorf("укажите --vistoriador и --empresa")
		}

		cfg := app.Config()
		viper.Set("vistoriador_id", initVistoriador)
		viper.Set("empresa_id", initEmpresa)
		viper.Set("server_address", cfg.ServerAddress)
		if initDeviceName != "" {
			viper.Set("device_name", initDeviceName)
		}

		path := viper.ConfigFileUsed()
		if path == "" {
			path = filepath.Join(cfg.ConfigDir, "config.yaml")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("ошибка создания каталога: %w", err)
		}
		if err := viper.WriteConfigAs(path); err != nil {
			return fmt.Errorf("ошибка записи конфигурации: %w", err)
		}

		fmt.Println(cli.Title("=== Инициализация Vistoria ==="))
		fmt.Printf("Конфигурация: %s\n", path)
		fmt.Printf("Устройство:   %s\n", app.DeviceID())

		fmt.Println("Проверка соединения с сервером...")
		if err := app.CheckConnection(cmd.Context()); err != nil {
			fmt.Printf("%s не удалось подключиться к серверу: %v\n", cli.Warn("⚠️"), err)
			fmt.Println("Осмотры будут сохраняться офлайн и отправятся позже.")
		} else {
			fmt.Println(cli.Success("✓ Соединение с сервером установлено"))
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initVistoriador, "vistoriador", "", "идентификатор инспектора")
	initCmd.Flags().StringVar(&initEmpresa, "empresa", "", "идентификатор компании")
	initCmd.Flags().StringVar(&initDeviceName, "device-name", "", "имя устройства")
}
