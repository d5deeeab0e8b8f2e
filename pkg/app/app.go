// Package app wires together the command line, the synth engine, the
// facade, and the terminal front-end into one runnable process.
package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/minimaxir/miditui/pkg/cli"
	"github.com/minimaxir/miditui/pkg/facade"
	"github.com/minimaxir/miditui/pkg/logger"
	"github.com/minimaxir/miditui/pkg/synth"
	"github.com/minimaxir/miditui/pkg/tui"
)

// AutosavePath is the well-known autosave destination in the working
// directory, restored on startup unless --new is given.
const AutosavePath = "./autosave.oxm"

// Application owns one run of the program from argument parsing
// through clean shutdown.
type Application struct {
	config *cli.Config
	log    *slog.Logger
}

// New constructs an Application.
func New() *Application {
	return &Application{}
}

// Run parses args, assembles the engine, and drives the terminal
// front-end until the user quits, flushing a final autosave on the way
// out.
func (app *Application) Run(args []string) error {
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp()
		return nil
	}

	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.log.Info("miditui starting")

	eng := synth.New()
	if app.config.SoundFontPath != "" {
		if _, err := eng.LoadSoundFont(app.config.SoundFontPath); err != nil {
			// A missing or corrupt SoundFont is a degraded, non-fatal
			// mode: the project still loads, and playback just stays
			// silent until a SoundFont is loaded from the UI.
			app.log.Warn("failed to load SoundFont", "path", app.config.SoundFontPath, "error", err)
		}
	}

	f := facade.New(eng, AutosavePath)

	if !app.config.New {
		restored, err := f.RestoreAutosaveIfPresent(AutosavePath)
		if err != nil {
			app.log.Warn("failed to restore autosave", "error", err)
		} else if restored {
			app.log.Info("restored autosave", "path", AutosavePath)
		}
	}

	if app.config.Path != "" {
		if err := f.LoadProject(app.config.Path); err != nil {
			return fmt.Errorf("failed to load %s: %w", app.config.Path, err)
		}
		app.log.Info("loaded project", "path", app.config.Path)
	}

	runErr := tui.Run(f)

	if err := f.Flush(); err != nil {
		app.log.Warn("failed to flush autosave on shutdown", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("terminal front-end exited with an error: %w", runErr)
	}
	app.log.Info("miditui terminated normally")
	return nil
}

func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

func (app *Application) initLogger() error {
	level := os.Getenv("MIDITUI_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	if err := logger.InitLogger(level); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}
