package sync

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vistoria/cmd/client/cmd/cli"
	"vistoria/internal/app/client"
)

var (
	forceSync   bool
	retryFailed bool
	batchSize   int
	maxRetries  int
	showAlerts  bool
)

// SyncCmd выполняет один проход синхронизации
var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизировать очередь с сервером",
	Long: `Отправляет осмотры из очереди на сервер пакетами.

Каждый осмотр повторяется с экспоненциальной задержкой при временных
ошибках. Ошибки валидации не повторяются: осмотр получает статус error
и может быть отправлен снова через --retry-failed.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cli.App(cmd.Context())
		if err != nil {
			return err
		}

		opts := app.DefaultOptions()
		opts.ForceSync = forceSync
		opts.ShowAlerts = showAlerts
		if cmd.Flags().Changed("batch-size") {
			opts.BatchSize = batchSize
		}
		if cmd.Flags().Changed("max-retries") {
			opts.MaxRetries = maxRetries
			if maxRetries <= 0 {
				opts.MaxRetries = client.NoRetries
			}
		}
		if showAlerts {
			app.SetAlertHandler(printAlert)
		}

		progress := newProgressPrinter()
		var result *client.SyncResult
		if retryFailed {
			result, err = app.RetryFailed(cmd.Context(), opts, progress.print)
		} else {
			result, err = app.Sync(cmd.Context(), opts, progress.print)
		}
		progress.done()
		if err != nil {
			return fmt.Errorf("ошибка синхронизации: %w", err)
		}

		if cli.JSONOutput {
			return cli.PrintJSON(os.Stdout, result)
		}
		printResult(result)
		return nil
	},
}

func printResult(r *client.SyncResult) {
	if r.Skipped {
		fmt.Println(cli.Dim("Синхронизация пропущена: нет ожидающих осмотров или недавний проход"))
		return
	}

	if r.Success {
		fmt.Println(cli.Success("✅ Синхронизация завершена"))
	} else {
		fmt.Println(cli.Warn("⚠️  Синхронизация завершена с ошибками"))
	}
	fmt.Printf("Время выполнения: %v\n", r.Duration.Round(time.Millisecond))
	fmt.Printf("Отправлено: %d\n", r.Synced)
	if r.Failed > 0 {
		fmt.Printf("Ошибок: %s\n", cli.Fail(r.Failed))
		for i, e := range r.Errors {
			if i == 3 {
				fmt.Printf("  ... и еще %d\n", len(r.Errors)-3)
				break
			}
			fmt.Printf("  • %s\n", e)
		}
	}
}

func printAlert(title, message string) {
	bar := strings.Repeat("─", 40)
	fmt.Println(cli.Title(bar))
	fmt.Println(cli.Title(title))
	fmt.Println(message)
	fmt.Println(cli.Title(bar))
}

// progressPrinter на терминале перерисовывает одну строку,
// иначе пишет сообщение на строку
type progressPrinter struct {
	tty     bool
	written bool
}

func newProgressPrinter() *progressPrinter {
	return &progressPrinter{tty: cli.IsTTY() && !cli.JSONOutput}
}

func (p *progressPrinter) print(message string) {
	if cli.JSONOutput {
		return
	}
	if p.tty {
		fmt.Printf("\r\033[K%s %s", cli.Dim("⟳"), message)
		p.written = true
		return
	}
	fmt.Println(message)
}

func (p *progressPrinter) done() {
	if p.tty && p.written {
		fmt.Print("\r\033[K")
	}
}

func init() {
	SyncCmd.Flags().BoolVarP(&forceSync, "force", "f", false, "не пропускать проход из-за недавней синхронизации")
	SyncCmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "повторить только осмотры со статусом error")
	SyncCmd.Flags().IntVar(&batchSize, "batch-size", 0, "размер пакета (по умолчанию из конфигурации)")
	SyncCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "число повторов (по умолчанию из конфигурации)")
	SyncCmd.Flags().BoolVar(&showAlerts, "alerts", false, "показать итоговое уведомление")

	SyncCmd.AddCommand(statusCmd)
	SyncCmd.AddCommand(resetCmd)
	SyncCmd.AddCommand(watchCmd)
}
