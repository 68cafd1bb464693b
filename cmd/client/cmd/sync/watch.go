package sync

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vistoria/cmd/client/cmd/cli"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Автоматическая синхронизация",
	Long: `Запускает синхронизацию по таймеру и при восстановлении соединения.
Работает до Ctrl+C.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cli.App(cmd.Context())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app.SetProgressHandler(func(message string) {
			fmt.Printf("%s %s\n", cli.Dim(time.Now().Format("15:04:05")), message)
		})
		app.SetAlertHandler(printAlert)

		cfg := app.Config()
		fmt.Printf("Синхронизация каждые %v, проверка сети каждые %v. Ctrl+C для выхода.\n",
			cfg.Sync.Interval, cfg.Sync.ProbeInterval)

		if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		fmt.Println("Остановлено")
		return nil
	},
}
