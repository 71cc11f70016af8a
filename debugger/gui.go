package debugger

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/regvm/regvm/vm"
)

// GUI represents the graphical user interface for the debugger
type GUI struct {
	// Core components
	Debugger *Debugger
	App      fyne.App
	Window   fyne.Window

	// View panels
	DisassemblyView *widget.TextGrid
	RegisterView    *widget.TextGrid
	MemoryView      *widget.TextGrid
	BreakpointsList *widget.List
	ConsoleOutput   *widget.TextGrid
	StatusLabel     *widget.Label

	// Controls
	Toolbar *widget.Toolbar

	// State
	MemoryAddress uint8
	stopRequested atomic.Bool

	// Breakpoints data
	breakpoints []string

	// Console output buffer
	consoleBuffer strings.Builder
	consoleMutex  sync.Mutex
}

// guiWriter redirects machine output to the GUI console
type guiWriter struct {
	gui *GUI
}

// Write implements io.Writer interface
func (w *guiWriter) Write(p []byte) (n int, err error) {
	w.gui.consoleMutex.Lock()
	defer w.gui.consoleMutex.Unlock()

	w.gui.consoleBuffer.Write(p)
	w.gui.updateConsole()
	return len(p), nil
}

// RunGUI runs the GUI (Graphical User Interface) debugger
func RunGUI(dbg *Debugger) error {
	gui := newGUI(dbg)
	gui.Window.ShowAndRun()
	return nil
}

// newGUI creates a new graphical user interface
func newGUI(debugger *Debugger) *GUI {
	myApp := app.New()
	myWindow := myApp.NewWindow("Register Machine Debugger")

	gui := &GUI{
		Debugger:    debugger,
		App:         myApp,
		Window:      myWindow,
		breakpoints: []string{},
	}

	gui.initializeViews()
	gui.buildLayout()

	// Redirect machine output to GUI console
	debugger.Machine.OutputWriter = &guiWriter{gui: gui}

	// Set window size
	myWindow.Resize(fyne.NewSize(1100, 700))

	return gui
}

// initializeViews creates all the view panels
func (g *GUI) initializeViews() {
	// Disassembly view
	g.DisassemblyView = widget.NewTextGrid()
	g.updateDisassembly()

	// Register view
	g.RegisterView = widget.NewTextGrid()
	g.updateRegisters()

	// Memory view
	g.MemoryView = widget.NewTextGrid()
	g.updateMemory()

	// Breakpoints list
	g.breakpoints = []string{}
	g.BreakpointsList = widget.NewList(
		func() int {
			return len(g.breakpoints)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("template")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(g.breakpoints[id])
		},
	)

	// Console output
	g.ConsoleOutput = widget.NewTextGrid()
	g.ConsoleOutput.SetText("")

	// Status label
	g.StatusLabel = widget.NewLabel("Ready")

	g.setupToolbar()
}

// buildLayout creates the main layout
func (g *GUI) buildLayout() {
	disassemblyPanel := container.NewBorder(
		widget.NewLabel("Disassembly"),
		nil, nil, nil,
		container.NewScroll(g.DisassemblyView),
	)

	registerPanel := container.NewBorder(
		widget.NewLabel("Registers"),
		nil, nil, nil,
		container.NewScroll(g.RegisterView),
	)

	memoryPanel := container.NewBorder(
		widget.NewLabel("Memory"),
		nil, nil, nil,
		container.NewScroll(g.MemoryView),
	)

	breakpointsPanel := container.NewBorder(
		widget.NewLabel("Breakpoints"),
		nil, nil, nil,
		container.NewScroll(g.BreakpointsList),
	)

	consolePanel := container.NewBorder(
		widget.NewLabel("Console Output"),
		nil, nil, nil,
		container.NewScroll(g.ConsoleOutput),
	)

	// Left side: disassembly
	leftPanel := container.NewStack(disassemblyPanel)

	// Right side: registers over breakpoints
	rightTop := container.NewVSplit(registerPanel, breakpointsPanel)
	rightTop.SetOffset(0.4)

	// Bottom right: memory and console
	bottomTabs := container.NewAppTabs(
		container.NewTabItem("Memory", memoryPanel),
		container.NewTabItem("Console", consolePanel),
	)

	rightPanel := container.NewVSplit(rightTop, bottomTabs)
	rightPanel.SetOffset(0.5)

	// Main split: left (disassembly) and right (info panels)
	mainSplit := container.NewHSplit(leftPanel, rightPanel)
	mainSplit.SetOffset(0.45)

	// Add status bar at bottom
	statusBar := container.NewBorder(nil, nil, nil, nil, g.StatusLabel)

	// Complete layout with toolbar at top
	content := container.NewBorder(
		g.Toolbar, // top
		statusBar, // bottom
		nil,       // left
		nil,       // right
		mainSplit, // center
	)

	g.Window.SetContent(content)
}

// setupToolbar creates the debugger control toolbar
func (g *GUI) setupToolbar() {
	g.Toolbar = widget.NewToolbar(
		widget.NewToolbarAction(theme.MediaPlayIcon(), func() {
			g.runProgram()
		}),
		widget.NewToolbarAction(theme.MediaSkipNextIcon(), func() {
			g.stepProgram()
		}),
		widget.NewToolbarAction(theme.MediaFastForwardIcon(), func() {
			g.continueProgram()
		}),
		widget.NewToolbarAction(theme.MediaStopIcon(), func() {
			g.stopProgram()
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentAddIcon(), func() {
			g.addBreakpoint()
		}),
		widget.NewToolbarAction(theme.ContentClearIcon(), func() {
			g.clearBreakpoints()
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), func() {
			g.refreshViews()
		}),
	)
}

// updateViews refreshes all view panels
func (g *GUI) updateViews() {
	g.updateDisassembly()
	g.updateRegisters()
	g.updateMemory()
	g.updateBreakpoints()
	g.updateConsole()
}

// updateDisassembly updates the disassembly view
func (g *GUI) updateDisassembly() {
	g.DisassemblyView.SetText(g.Debugger.FormatDisassembly(0, 64))
}

// updateRegisters updates the register view
func (g *GUI) updateRegisters() {
	g.RegisterView.SetText(g.Debugger.FormatRegisters())
}

// updateMemory updates the memory view
func (g *GUI) updateMemory() {
	g.MemoryView.SetText(g.Debugger.FormatMemory(g.MemoryAddress, 16))
}

// updateBreakpoints updates the breakpoints list
func (g *GUI) updateBreakpoints() {
	list := g.Debugger.Breakpoints.List()
	g.breakpoints = make([]string, 0, len(list))

	for _, bp := range list {
		status := "enabled"
		if !bp.Enabled {
			status = "disabled"
		}
		g.breakpoints = append(g.breakpoints, fmt.Sprintf("0x%02X (%s)", bp.Address, status))
	}

	g.BreakpointsList.Refresh()
}

// updateConsole updates the console output view
func (g *GUI) updateConsole() {
	g.ConsoleOutput.SetText(g.consoleBuffer.String())
}

// runProgram restarts execution from the beginning
func (g *GUI) runProgram() {
	g.Debugger.Machine.Reset()
	g.Debugger.Machine.Start()
	g.consoleMutex.Lock()
	g.consoleBuffer.Reset()
	g.consoleMutex.Unlock()

	g.StatusLabel.SetText("Running...")
	go g.runLoop()
}

// continueProgram resumes execution until the next stop
func (g *GUI) continueProgram() {
	if g.Debugger.Machine.Terminated() {
		g.StatusLabel.SetText("Program is not running")
		return
	}
	if g.Debugger.Machine.State == vm.StateNull {
		g.Debugger.Machine.Start()
	}

	g.StatusLabel.SetText("Running...")
	go g.runLoop()
}

// runLoop executes in a goroutine until a breakpoint, watchpoint, stop
// request, termination or error, then refreshes the views.
func (g *GUI) runLoop() {
	g.stopRequested.Store(false)
	d := g.Debugger
	m := d.Machine
	first := true

	for {
		if g.stopRequested.Load() {
			g.StatusLabel.SetText(fmt.Sprintf("Stopped at 0x%02X", m.PC))
			break
		}
		if m.Terminated() {
			g.StatusLabel.SetText(d.terminationMessage())
			break
		}
		if !first {
			if bp, ok := d.Breakpoints.Hit(uint8(m.PC)); ok {
				g.StatusLabel.SetText(fmt.Sprintf("Breakpoint %d at 0x%02X", bp.ID, m.PC))
				break
			}
		}
		first = false

		if err := m.Step(); err != nil {
			g.StatusLabel.SetText(fmt.Sprintf("Error: %v", err))
			break
		}

		if wp, old, hit := d.Watchpoints.Check(m); hit {
			g.StatusLabel.SetText(fmt.Sprintf("Watchpoint %d (%s): 0x%02X -> 0x%02X",
				wp.ID, wp.Target, old, wp.LastValue))
			break
		}
	}

	g.updateViews()
}

// stepProgram executes one instruction
func (g *GUI) stepProgram() {
	d := g.Debugger

	if err := d.StepOnce(); err != nil {
		g.StatusLabel.SetText(fmt.Sprintf("Error: %v", err))
		return
	}

	if wp, old, hit := d.Watchpoints.Check(d.Machine); hit {
		g.StatusLabel.SetText(fmt.Sprintf("Watchpoint %d (%s): 0x%02X -> 0x%02X",
			wp.ID, wp.Target, old, wp.LastValue))
	} else if d.Machine.Terminated() {
		g.StatusLabel.SetText(d.terminationMessage())
	} else {
		g.StatusLabel.SetText(fmt.Sprintf("Stepped to 0x%02X", d.Machine.PC))
	}

	g.updateViews()
}

// stopProgram requests the run loop to stop
func (g *GUI) stopProgram() {
	g.stopRequested.Store(true)
}

// addBreakpoint adds a breakpoint at the current program counter
func (g *GUI) addBreakpoint() {
	pc := uint8(g.Debugger.Machine.PC & 0xFF)
	bp := g.Debugger.Breakpoints.Add(pc)
	g.updateBreakpoints()
	g.StatusLabel.SetText(fmt.Sprintf("Breakpoint %d added at 0x%02X", bp.ID, pc))
}

// clearBreakpoints removes all breakpoints
func (g *GUI) clearBreakpoints() {
	g.Debugger.Breakpoints.Clear()
	g.updateBreakpoints()
	g.StatusLabel.SetText("All breakpoints cleared")
}

// refreshViews manually refreshes all views
func (g *GUI) refreshViews() {
	g.updateViews()
	g.StatusLabel.SetText("Views refreshed")
}
