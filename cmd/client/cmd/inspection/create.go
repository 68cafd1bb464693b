package inspection

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vistoria/cmd/client/cmd/cli"
	"vistoria/internal/app/client"
	"vistoria/internal/domain/inspection"
)

var (
	imovelID    string
	tipo        string
	fotos       []string
	observacoes string
	checklist   map[string]string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Создать осмотр офлайн",
	Long: `Создает осмотр и ставит его в очередь синхронизации.

Фото указываются как путь к файлу, с необязательным описанием
после двоеточия:

  vistoria inspection create --imovel im-12 --tipo entrada \
    --foto sala.jpg:"Sala de estar" --foto cozinha.jpg \
    --checklist pintura=ok --checklist piso=riscado`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cli.App(cmd.Context())
		if err != nil {
			return err
		}

		t, err := inspection.ParseTipo(tipo)
		if err != nil {
			return err
		}
		photos, err := parsePhotos(fotos)
		if err != nil {
			return err
		}

		rec, err := app.CreateInspection(cmd.Context(), client.CreateInspectionRequest{
			ImovelID:    imovelID,
			Tipo:        t,
			Fotos:       photos,
			Checklist:   checklist,
			Observacoes: observacoes,
		})
		if err != nil {
			return fmt.Errorf("ошибка создания осмотра: %w", err)
		}

		if cli.JSONOutput {
			return cli.PrintJSON(os.Stdout, rec)
		}
		fmt.Printf("%s Осмотр %s поставлен в очередь (%d фото)\n", cli.Success("✅"), rec.ID, len(rec.Fotos))
		return nil
	},
}

// parsePhotos разбирает значения --foto вида path[:descricao]
func parsePhotos(values []string) ([]inspection.Photo, error) {
	out := make([]inspection.Photo, 0, len(values))
	for _, v := range values {
		path, desc := v, ""
		// описание после последнего двоеточия, если это не часть пути или URL
		if i := strings.LastIndex(v, ":"); i > 0 && !strings.ContainsAny(v[i+1:], `/\`) {
			path, desc = v[:i], v[i+1:]
		}
		path = strings.TrimSpace(path)
		if path == "" {
			return nil, fmt.Errorf("пустой путь к фото в %q", v)
		}
		photo := inspection.Photo{URI: path, Descricao: strings.TrimSpace(desc)}
		if !photo.IsRemote() {
			if _, err := os.Stat(strings.TrimPrefix(path, "file://")); err != nil {
				return nil, fmt.Errorf("фото %s: %w", path, err)
			}
		}
		out = append(out, photo)
	}
	return out, nil
}

func init() {
	createCmd.Flags().StringVar(&imovelID, "imovel", "", "идентификатор объекта недвижимости")
	createCmd.Flags().StringVar(&tipo, "tipo", string(inspection.TipoEntrada), "тип осмотра: entrada, saida, manutencao")
	createCmd.Flags().StringArrayVar(&fotos, "foto", nil, "фото path[:descricao], можно несколько")
	createCmd.Flags().StringVar(&observacoes, "observacoes", "", "замечания")
	createCmd.Flags().StringToStringVar(&checklist, "checklist", nil, "пункты чек-листа key=value")
	_ = createCmd.MarkFlagRequired("imovel")
}
