package gui

import (
	"kernelscope/internal/algorithms"
	"kernelscope/internal/kernel"
	"kernelscope/internal/logger"
	"kernelscope/internal/pipeline"

	"fyne.io/fyne/v2"
)

type Manager struct {
	window           fyne.Window
	controller       *Controller
	view             *View
	algorithmManager *algorithms.Manager
	logger           logger.Logger
	isShutdown       bool
}

func NewManager(window fyne.Window, coordinator *pipeline.Coordinator, algorithmManager *algorithms.Manager, shapes []kernel.Shape, log logger.Logger) (*Manager, error) {
	manager := &Manager{
		window:           window,
		algorithmManager: algorithmManager,
		logger:           log,
	}

	labels := make([]string, len(shapes))
	for i, s := range shapes {
		labels[i] = s.String()
	}

	manager.view = NewView(window, labels)
	manager.controller = NewController(coordinator, algorithmManager, shapes, log)
	manager.view.SetController(manager.controller)
	manager.controller.SetView(manager.view)
	manager.view.Render(coordinator.State())

	log.Info("GUIManager", "initialized with MVC pattern", map[string]interface{}{
		"window_title": window.Title(),
		"shapes":       labels,
	})

	return manager, nil
}

// Menus returns the Backend and View menus for the main menu bar. stretch is
// the initial state of the contrast stretch toggle.
func (m *Manager) Menus(stretch bool) []*fyne.Menu {
	backendMenu := fyne.NewMenu("Backend")
	current := m.algorithmManager.Current().Name()
	for _, name := range m.algorithmManager.Available() {
		item := fyne.NewMenuItem(name, nil)
		item.Checked = name == current
		item.Action = func() {
			if err := m.controller.ChangeBackend(name); err != nil {
				return
			}
			for _, other := range backendMenu.Items {
				other.Checked = other == item
			}
			backendMenu.Refresh()
		}
		backendMenu.Items = append(backendMenu.Items, item)
	}

	viewMenu := fyne.NewMenu("View")
	stretchItem := fyne.NewMenuItem("Stretch preview contrast", nil)
	stretchItem.Checked = stretch
	stretchItem.Action = func() {
		stretchItem.Checked = !stretchItem.Checked
		m.controller.SetStretch(stretchItem.Checked)
		viewMenu.Refresh()
	}
	viewMenu.Items = append(viewMenu.Items, stretchItem)

	return []*fyne.Menu{backendMenu, viewMenu}
}

func (m *Manager) GetMainContainer() *fyne.Container {
	return m.view.GetMainContainer()
}

func (m *Manager) GetWindow() fyne.Window {
	return m.window
}

func (m *Manager) Show() {
	m.view.Show()
	m.logger.Info("GUIManager", "GUI displayed", nil)
}

func (m *Manager) ShowError(title string, err error) {
	fyne.Do(func() {
		m.view.ShowError(title, err)
	})
}

func (m *Manager) Shutdown() {
	if m.isShutdown {
		return
	}

	m.isShutdown = true
	m.logger.Info("GUIManager", "shutdown initiated", nil)

	if m.controller != nil {
		m.controller.Shutdown()
	}

	if m.view != nil {
		fyne.Do(m.view.Shutdown)
	}

	m.logger.Info("GUIManager", "shutdown completed", nil)
}
