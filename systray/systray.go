package systray

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/getlantern/systray"
)

// Manager manages the system tray icon and menu
type Manager struct {
	webPort  int
	iconData []byte
	quit     chan struct{}

	// OnToggle, when set, is called with the new state whenever the user
	// flips the "Dispatch enabled" checkbox.
	OnToggle func(enabled bool)

	enabled bool
	mToggle *systray.MenuItem
}

// NewManager creates a new tray manager. enabled seeds the checkbox state.
func NewManager(webPort int, iconData []byte, enabled bool) *Manager {
	return &Manager{
		webPort:  webPort,
		iconData: iconData,
		enabled:  enabled,
		quit:     make(chan struct{}),
	}
}

// Run starts the system tray (blocking call)
func (m *Manager) Run() {
	systray.Run(m.onReady, m.onExit)
}

// Stop stops the system tray
func (m *Manager) Stop() {
	systray.Quit()
}

// WaitForQuit returns a channel that will be closed when user clicks Quit
func (m *Manager) WaitForQuit() <-chan struct{} {
	return m.quit
}

// SetEnabled updates the checkbox to reflect a state change made elsewhere
// (dashboard, API).
func (m *Manager) SetEnabled(on bool) {
	m.enabled = on
	if m.mToggle == nil {
		return
	}
	if on {
		m.mToggle.Check()
	} else {
		m.mToggle.Uncheck()
	}
}

// onReady is called when the systray is ready
func (m *Manager) onReady() {
	if len(m.iconData) > 0 {
		systray.SetIcon(m.iconData)
	}

	systray.SetTitle("keypadd")
	systray.SetTooltip("keypadd - Keypad Remapper")

	m.mToggle = systray.AddMenuItemCheckbox("Dispatch enabled", "Toggle key dispatch", m.enabled)
	mOpenWebUI := systray.AddMenuItem("Open Dashboard", "Open the keypadd web dashboard")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit keypadd")

	go func() {
		for {
			select {
			case <-m.mToggle.ClickedCh:
				m.enabled = !m.enabled
				m.SetEnabled(m.enabled)
				if m.OnToggle != nil {
					m.OnToggle(m.enabled)
				}
			case <-mOpenWebUI.ClickedCh:
				m.openWebUI()
			case <-mQuit.ClickedCh:
				slog.Info("User requested quit from system tray")
				close(m.quit)
				systray.Quit()
				return
			}
		}
	}()
}

// onExit is called when the systray is exiting
func (m *Manager) onExit() {
	slog.Info("System tray exited")
}

// openWebUI opens the dashboard in the default browser
func (m *Manager) openWebUI() {
	url := fmt.Sprintf("http://localhost:%d", m.webPort)
	slog.Info("Opening dashboard", "url", url)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	default:
		slog.Error("Unsupported platform for opening browser", "platform", runtime.GOOS)
		return
	}

	if err := cmd.Start(); err != nil {
		slog.Error("Failed to open dashboard", "error", err)
	}
}
