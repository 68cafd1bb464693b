package sync

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"vistoria/cmd/client/cmd/cli"
	"vistoria/internal/app/client"
	"vistoria/internal/domain/sync"
)

var withServer bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Статус очереди синхронизации",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cli.App(cmd.Context())
		if err != nil {
			return err
		}

		local, err := app.Probe(cmd.Context())
		if err != nil {
			return err
		}

		var server *sync.StatusResponse
		var serverErr error
		if withServer {
			server, serverErr = app.GetServerStatus(cmd.Context())
		}

		if cli.JSONOutput {
			out := struct {
				Local  *client.SyncStatus   `json:"local"`
				Server *sync.StatusResponse `json:"server,omitempty"`
				Stats  client.SyncStats     `json:"stats"`
			}{local, server, app.Stats()}
			return cli.PrintJSON(os.Stdout, out)
		}

		printLocal(local, app.Stats())
		if withServer {
			fmt.Println()
			if serverErr != nil {
				fmt.Printf("%s сервер недоступен: %v\n", cli.Fail("❌"), serverErr)
				return nil
			}
			printServer(server)
		}
		return nil
	},
}

func printLocal(s *client.SyncStatus, stats client.SyncStats) {
	fmt.Println(cli.Title("=== Локальная очередь ==="))
	fmt.Printf("  Ожидают:        %d\n", s.PendingCount)
	fmt.Printf("  С ошибками:     %d\n", s.ErrorCount)
	fmt.Printf("  Отправлено:     %d\n", s.SyncedCount)
	fmt.Printf("  Состояние:      %s\n", s.State)
	if s.IsOnline {
		fmt.Printf("  Сеть:           %s\n", cli.Success("online"))
	} else {
		fmt.Printf("  Сеть:           %s\n", cli.Warn("offline"))
	}
	if s.LastSyncAt != nil {
		fmt.Printf("  Последняя:      %s\n", s.LastSyncAt.Local().Format("2006-01-02 15:04:05"))
	}

	fmt.Println()
	fmt.Println(cli.Title("=== Статистика ==="))
	fmt.Printf("  Проходов:       %d\n", stats.TotalSyncs)
	fmt.Printf("  Отправлено:     %d\n", stats.TotalUploaded)
	fmt.Printf("  Ошибок:         %d\n", stats.TotalErrors)
	fmt.Printf("  Среднее время:  %.2f сек\n", stats.AvgSyncDuration)
	if !stats.LastSuccessful.IsZero() {
		fmt.Printf("  Успешный:       %s\n", formatTime(stats.LastSuccessful))
	}
	if !stats.LastFailed.IsZero() {
		fmt.Printf("  Неудачный:      %s\n", formatTime(stats.LastFailed))
	}
}

func printServer(s *sync.StatusResponse) {
	fmt.Println(cli.Title("=== Сервер ==="))
	fmt.Printf("  Сохранено:      %d\n", s.SyncedCount)
	fmt.Printf("  Ошибок:         %d\n", s.ErrorCount)
	fmt.Printf("  Успешность:     %.1f%%\n", s.SyncSuccessRate*100)
	fmt.Printf("  Среднее время:  %.0f мс\n", s.AverageSyncTimeMs)
	if s.LastSyncTimestamp != nil {
		fmt.Printf("  Последний пакет: %s\n", formatTime(*s.LastSyncTimestamp))
	}
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func init() {
	statusCmd.Flags().BoolVar(&withServer, "server", false, "добавить статус с сервера")
}
