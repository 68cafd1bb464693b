package inspection

import (
	"github.com/spf13/cobra"
)

// InspectionCmd - родительская команда для работы с осмотрами в очереди
var InspectionCmd = &cobra.Command{
	Use:     "inspection",
	Aliases: []string{"vistoria", "i"},
	Short:   "Осмотры в локальной очереди",
	Long:    `Создание и просмотр осмотров, ожидающих синхронизации.`,
}

func init() {
	InspectionCmd.AddCommand(createCmd)
	InspectionCmd.AddCommand(listCmd)
	InspectionCmd.AddCommand(getCmd)
}
