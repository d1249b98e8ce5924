package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"kernelscope/internal/algorithms"
	"kernelscope/internal/config"
	"kernelscope/internal/gui"
	"kernelscope/internal/gui/widgets"
	"kernelscope/internal/logger"
	"kernelscope/internal/opencv/filter"
	"kernelscope/internal/pipeline"
	"kernelscope/internal/preview"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"gocv.io/x/gocv"
)

const (
	AppName    = "Kernelscope"
	AppID      = "com.imageprocessing.kernelscope"
	AppVersion = "1.0.0"
)

type shutdownHandler interface {
	Shutdown()
}

type Application struct {
	fyneApp       fyne.App
	window        fyne.Window
	guiManager    *gui.Manager
	coordinator   *pipeline.Coordinator
	config        *config.Config
	logger        logger.Logger
	shutdownables []shutdownHandler
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	shutdown      chan struct{}
	menuSetup     bool
}

func NewApplication() (*Application, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logLevel, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	log := logger.NewConsoleLogger(logLevel)

	app.SetMetadata(fyne.AppMetadata{
		ID:      AppID,
		Name:    AppName,
		Version: AppVersion,
		Build:   1,
	})

	fyneApp := app.NewWithID(AppID)
	fyneApp.Settings().SetTheme(gui.NewTheme())
	window := fyneApp.NewWindow(AppName)

	windowSize := calculateMinimumWindowSize()
	window.Resize(windowSize)
	window.SetFixedSize(false)
	window.SetPadded(false)
	window.CenterOnScreen()
	window.SetMaster()

	ctx, cancel := context.WithCancel(context.Background())

	log.Info("Application", "starting application", map[string]interface{}{
		"version":       AppVersion,
		"config_path":   config.Path(),
		"window_width":  windowSize.Width,
		"window_height": windowSize.Height,
		"log_level":     logLevel.String(),
	})

	algorithmManager := algorithms.NewManager()
	if err := algorithmManager.Register(filter.New()); err != nil {
		cancel()
		return nil, err
	}
	if err := algorithmManager.SetCurrent(cfg.Convolution.Backend); err != nil {
		cancel()
		return nil, fmt.Errorf("convolution.backend: %w", err)
	}

	processor := &pipeline.Processor{
		Correlator: algorithmManager.Current(),
		Workers:    cfg.Convolution.Workers,
		Preview: preview.Options{
			MaxSize: cfg.Preview.MaxSize,
			Stretch: cfg.Preview.Stretch,
		},
	}
	coordinator := pipeline.NewCoordinator(processor, cfg.DefaultKernelShape(), log)

	guiManager, err := gui.NewManager(window, coordinator, algorithmManager, cfg.Kernel.Shapes, log)
	if err != nil {
		cancel()
		return nil, err
	}

	application := &Application{
		fyneApp:     fyneApp,
		window:      window,
		guiManager:  guiManager,
		coordinator: coordinator,
		config:      cfg,
		logger:      log,
		ctx:         ctx,
		cancel:      cancel,
		shutdown:    make(chan struct{}),
		shutdownables: []shutdownHandler{
			coordinator,
			guiManager,
		},
	}

	application.setupSignalHandling()
	log.Info("Application", "initialization complete", map[string]interface{}{
		"backends": algorithmManager.Available(),
		"backend":  cfg.Convolution.Backend,
		"workers":  cfg.Convolution.Workers,
	})
	return application, nil
}

func (a *Application) setupMenu() {
	aboutAction := func() {
		a.logger.Info("About", "menu action triggered", nil)
		a.showAbout()
	}

	fileMenu := fyne.NewMenu("File")
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", aboutAction),
	)

	menus := []*fyne.Menu{fileMenu}
	menus = append(menus, a.guiManager.Menus(a.config.Preview.Stretch)...)
	menus = append(menus, helpMenu)
	a.window.SetMainMenu(fyne.NewMainMenu(menus...))

	names := make([]string, len(menus))
	for i, m := range menus {
		names[i] = m.Label
	}
	a.logger.Info("Application", "menu setup completed", map[string]interface{}{
		"menus": names,
	})
}

func (a *Application) showAbout() {
	metadata := a.fyneApp.Metadata()

	name := metadata.Name
	if name == "" {
		name = AppName
	}

	version := metadata.Version
	if version == "" {
		version = AppVersion
	}

	aboutContent := container.NewVBox(
		widget.NewLabel(name),
		widget.NewLabel(fmt.Sprintf("Version: %s", version)),
		widget.NewLabel("Explore convolution kernels cut from an image sheet."),
		widget.NewLabel(""),
		widget.NewLabel("Runtime Info:"),
		widget.NewLabel(fmt.Sprintf("Go: %s", runtime.Version())),
		widget.NewLabel(fmt.Sprintf("Platform: %s/%s", runtime.GOOS, runtime.GOARCH)),
		widget.NewLabel(fmt.Sprintf("OpenCV: %s", gocv.OpenCVVersion())),
		widget.NewLabel(fmt.Sprintf("Config: %s", config.Path())),
	)

	dialog.ShowCustom("About", "Close", aboutContent, a.window)
}

func calculateMinimumWindowSize() fyne.Size {
	imageDisplayWidth := widgets.ImageAreaWidth * 3
	toolbarHeight := float32(60)
	kernelPanelHeight := float32(110)

	return fyne.Size{
		Width:  float32(imageDisplayWidth + 80),
		Height: float32(widgets.ImageAreaHeight+widgets.KernelThumbSize) + toolbarHeight + kernelPanelHeight,
	}
}

func (a *Application) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			a.logger.Info("Application", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			a.initiateShutdown()
		case <-a.ctx.Done():
		}
	}()
}

func (a *Application) Run() error {
	if !a.menuSetup {
		a.setupMenu()
		a.menuSetup = true
	}

	a.window.SetCloseIntercept(func() {
		a.logger.Info("Application", "shutdown requested via window close", nil)
		a.initiateShutdown()
		a.window.Close()
	})

	a.guiManager.Show()

	go func() {
		<-a.shutdown
		fyne.Do(func() {
			a.fyneApp.Quit()
		})
	}()

	a.fyneApp.Run()
	a.initiateShutdown()
	a.wg.Wait()
	return nil
}

func (a *Application) initiateShutdown() {
	select {
	case <-a.shutdown:
		return
	default:
		close(a.shutdown)
	}

	a.logger.Info("Application", "shutdown sequence initiated", map[string]interface{}{
		"components": len(a.shutdownables),
	})

	a.cancel()

	for i := len(a.shutdownables) - 1; i >= 0; i-- {
		component := a.shutdownables[i]

		done := make(chan struct{})
		go func() {
			defer close(done)
			component.Shutdown()
		}()

		select {
		case <-done:
		case <-time.After(10 * time.Second):
			a.logger.Warning("Application", "component shutdown timeout", map[string]interface{}{
				"component_index": i,
			})
		}
	}

	a.logger.Info("Application", "shutdown sequence completed", nil)
}

func (a *Application) Shutdown(ctx context.Context) error {
	a.initiateShutdown()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
