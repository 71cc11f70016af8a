package debugger

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// TUI represents the text user interface for the debugger
type TUI struct {
	Debugger *Debugger
	App      *tview.Application

	// Layout containers
	MainLayout *tview.Flex
	LeftPanel  *tview.Flex
	RightPanel *tview.Flex

	// View panels
	RegisterView    *tview.TextView
	MemoryView      *tview.TextView
	DisassemblyView *tview.TextView
	OutputView      *tview.TextView
	CommandInput    *tview.InputField

	// State
	MemoryAddress uint8
}

// NewTUI creates a new text user interface
func NewTUI(debugger *Debugger) *TUI {
	tui := &TUI{
		Debugger: debugger,
		App:      tview.NewApplication(),
	}

	tui.initializeViews()
	tui.buildLayout()
	tui.setupKeyBindings()

	return tui
}

// initializeViews creates all the view panels
func (t *TUI) initializeViews() {
	t.RegisterView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	t.RegisterView.SetBorder(true).SetTitle(" Registers ")

	t.MemoryView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.MemoryView.SetBorder(true).SetTitle(" Memory ")

	t.DisassemblyView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.DisassemblyView.SetBorder(true).SetTitle(" Disassembly ")

	t.OutputView = tview.NewTextView().
		SetDynamicColors(false).
		SetScrollable(true).
		SetWrap(true)
	t.OutputView.SetBorder(true).SetTitle(" Output ")

	t.CommandInput = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0)
	t.CommandInput.SetBorder(true).SetTitle(" Command (F5 continue, F10 step) ")
	t.CommandInput.SetDoneFunc(t.handleCommand)
}

// buildLayout arranges the panels
func (t *TUI) buildLayout() {
	t.LeftPanel = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.DisassemblyView, 0, 2, false).
		AddItem(t.MemoryView, 0, 1, false)

	t.RightPanel = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.RegisterView, 6, 0, false).
		AddItem(t.OutputView, 0, 1, false)

	body := tview.NewFlex().
		AddItem(t.LeftPanel, 0, 3, false).
		AddItem(t.RightPanel, 0, 2, false)

	t.MainLayout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, false).
		AddItem(t.CommandInput, 3, 0, true)
}

// setupKeyBindings installs the global function keys and command history
// navigation.
func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF5:
			t.runCommand("continue")
			return nil
		case tcell.KeyF10:
			t.runCommand("step")
			return nil
		case tcell.KeyEscape:
			t.App.SetFocus(t.CommandInput)
			return nil
		}
		return event
	})

	t.CommandInput.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyUp:
			t.CommandInput.SetText(t.Debugger.History.Previous())
			return nil
		case tcell.KeyDown:
			t.CommandInput.SetText(t.Debugger.History.Next())
			return nil
		}
		return event
	})
}

// handleCommand runs the typed command when Enter is pressed
func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}

	cmdLine := t.CommandInput.GetText()
	t.CommandInput.SetText("")

	if cmdLine == "quit" || cmdLine == "q" || cmdLine == "exit" {
		t.App.Stop()
		return
	}

	t.runCommand(cmdLine)
}

// runCommand executes a debugger command and refreshes every panel
func (t *TUI) runCommand(cmdLine string) {
	d := t.Debugger

	if err := d.ExecuteCommand(cmdLine); err != nil {
		fmt.Fprintf(t.OutputView, "Error: %v\n", err)
	}

	if output := d.GetOutput(); output != "" {
		fmt.Fprint(t.OutputView, output)
	}

	if d.Running {
		reason := d.RunToBreak()
		fmt.Fprintf(t.OutputView, "\n%s\n", reason)
	}

	t.refresh()
}

// refresh redraws the register, memory and disassembly panels from the
// machine state.
func (t *TUI) refresh() {
	d := t.Debugger

	t.RegisterView.SetText(d.FormatRegisters())
	t.MemoryView.SetText(d.FormatMemory(t.MemoryAddress, 16))

	// Keep the disassembly anchored near the current instruction.
	start := 0
	if d.Machine.PC > 12 && d.Machine.PC < 256 {
		start = d.Machine.PC - 12
	}
	t.DisassemblyView.SetText(d.FormatDisassembly(uint8(start), 24)) // #nosec G115 -- start < 256

	t.OutputView.ScrollToEnd()
}

// RunTUI starts the TUI debugger. Program output is redirected into the
// output panel for the duration.
func RunTUI(dbg *Debugger) error {
	tui := NewTUI(dbg)

	prev := dbg.Machine.OutputWriter
	dbg.Machine.OutputWriter = tview.ANSIWriter(tui.OutputView)
	defer func() { dbg.Machine.OutputWriter = prev }()

	tui.refresh()
	fmt.Fprintln(tui.OutputView, "Type 'help' for commands, 'quit' to exit.")

	return tui.App.SetRoot(tui.MainLayout, true).SetFocus(tui.CommandInput).Run()
}
