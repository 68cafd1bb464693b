// Package cli общие помощники команд: доступ к приложению и вывод
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"

	"vistoria/internal/app/client"
)

type appKey struct{}

// JSONOutput глобальный флаг --json
var JSONOutput bool

// WithApp кладет приложение в контекст команды
func WithApp(ctx context.Context, app *client.App) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

// App достает приложение из контекста команды
func App(ctx context.Context) (*client.App, error) {
	app, ok := ctx.Value(appKey{}).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}

// IsTTY stdout подключен к терминалу
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// PrintJSON печатает v с отступами
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	Success = color.New(color.FgGreen, color.Bold).SprintFunc()
	Warn    = color.New(color.FgYellow).SprintFunc()
	Fail    = color.New(color.FgRed, color.Bold).SprintFunc()
	Dim     = color.New(color.Faint).SprintFunc()
	Title   = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// StatusColor раскрашивает статус записи очереди
func StatusColor(status string) string {
	switch status {
	case "synced":
		return Success(status)
	case "error":
		return Fail(status)
	default:
		return Warn(status)
	}
}
