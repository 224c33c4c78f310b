package cli

import (
	"errors"

	"github.com/snapyr/snapyr-bridge/internal/app"
)

// ErrAppNotInitialized is returned by commands that need the container when
// it could not be created.
var ErrAppNotInitialized = errors.New("app not initialized")

// App holds the CLI application dependencies.
type App struct {
	Container *app.Container
}

// NewApp creates a new CLI application over container.
func NewApp(container *app.Container) *App {
	return &App{Container: container}
}

// cliApp is the global CLI application instance
var cliApp *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	cliApp = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return cliApp
}

func requireApp() (*App, error) {
	a := GetApp()
	if a == nil || a.Container == nil {
		return nil, ErrAppNotInitialized
	}
	return a, nil
}
