package sync

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vistoria/cmd/client/cmd/cli"
)

var assumeYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Очистить очередь синхронизации",
	Long: `Удаляет все осмотры из локальной очереди, включая не отправленные.
Недоступно во время синхронизации.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cli.App(cmd.Context())
		if err != nil {
			return err
		}

		if !assumeYes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("нет терминала для подтверждения, используйте --yes")
			}
			status, err := app.GetStatus(cmd.Context())
			if err != nil {
				return err
			}
			prompt := fmt.Sprintf("Удалить %d осмотров (из них не отправлено: %d)?",
				status.PendingCount+status.ErrorCount+status.SyncedCount,
				status.PendingCount+status.ErrorCount)
			if !confirm(os.Stdin, os.Stdout, prompt) {
				fmt.Println("Отменено")
				return nil
			}
		}

		if err := app.ClearQueue(cmd.Context()); err != nil {
			return fmt.Errorf("ошибка очистки очереди: %w", err)
		}
		fmt.Println(cli.Success("✅ Очередь очищена"))
		return nil
	},
}

// confirm спрашивает y/N; пустой ответ - нет
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "sim", "д", "да":
		return true
	}
	return false
}

func init() {
	resetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "не спрашивать подтверждение")
}
