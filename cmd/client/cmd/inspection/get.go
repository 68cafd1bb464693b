package inspection

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vistoria/cmd/client/cmd/cli"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Показать осмотр",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.App(cmd.Context())
		if err != nil {
			return err
		}

		rec, err := app.GetInspection(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if cli.JSONOutput {
			return cli.PrintJSON(os.Stdout, rec)
		}

		fmt.Println(cli.Title("Осмотр " + rec.ID))
		fmt.Printf("  Объект:        %s\n", rec.ImovelID)
		fmt.Printf("  Тип:           %s\n", rec.Tipo)
		fmt.Printf("  Статус:        %s\n", cli.StatusColor(string(rec.Status)))
		fmt.Printf("  Создан:        %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		if rec.CloudID != "" {
			fmt.Printf("  Cloud ID:      %s\n", rec.CloudID)
		}
		if rec.SyncedAt != nil {
			fmt.Printf("  Синхронизован: %s\n", rec.SyncedAt.Local().Format("2006-01-02 15:04:05"))
		}
		if rec.LastError != "" {
			fmt.Printf("  Ошибка:        %s\n", cli.Fail(rec.LastError))
		}
		if rec.Observacoes != "" {
			fmt.Printf("  Замечания:     %s\n", rec.Observacoes)
		}
		for k, v := range rec.Checklist {
			fmt.Printf("  [%s] %s\n", k, v)
		}
		for i, f := range rec.Fotos {
			fmt.Printf("  фото %d: %s %s\n", i+1, f.URI, cli.Dim(f.Descricao))
		}
		return nil
	},
}
