package inspection

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vistoria/cmd/client/cmd/cli"
	"vistoria/internal/domain/inspection"
)

var statusFilter []string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Список осмотров в очереди",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cli.App(cmd.Context())
		if err != nil {
			return err
		}

		statuses := make([]inspection.Status, 0, len(statusFilter))
		for _, s := range statusFilter {
			st, err := inspection.ParseStatus(s)
			if err != nil {
				return err
			}
			statuses = append(statuses, st)
		}

		recs, err := app.ListInspections(cmd.Context(), statuses...)
		if err != nil {
			return fmt.Errorf("ошибка чтения очереди: %w", err)
		}

		if cli.JSONOutput {
			return cli.PrintJSON(os.Stdout, recs)
		}
		if len(recs) == 0 {
			fmt.Println("Очередь пуста")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tОБЪЕКТ\tТИП\tФОТО\tСОЗДАН\tСТАТУС")
		for _, r := range recs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				r.ID, r.ImovelID, r.Tipo, len(r.Fotos),
				r.CreatedAt.Local().Format("2006-01-02 15:04"),
				cli.StatusColor(string(r.Status)),
			)
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().StringSliceVar(&statusFilter, "status", nil, "фильтр: pending, synced, error")
}
