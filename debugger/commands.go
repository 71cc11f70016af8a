package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/regvm/regvm/isa"
)

// ExecuteCommand parses and runs one debugger command line. An empty line
// repeats the last command.
func (d *Debugger) ExecuteCommand(cmdLine string) error {
	cmdLine = strings.TrimSpace(cmdLine)
	if cmdLine == "" {
		cmdLine = d.LastCommand
		if cmdLine == "" {
			return nil
		}
	} else {
		d.History.Add(cmdLine)
		d.LastCommand = cmdLine
	}

	fields := strings.Fields(cmdLine)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "run", "r":
		return d.cmdRun(args)
	case "continue", "c":
		return d.cmdContinue(args)
	case "step", "s":
		return d.cmdStep(args)
	case "registers", "regs":
		return d.cmdRegisters(args)
	case "memory", "mem", "x":
		return d.cmdMemory(args)
	case "disassemble", "dis":
		return d.cmdDisassemble(args)
	case "break", "b":
		return d.cmdBreak(args)
	case "delete", "d":
		return d.cmdDelete(args)
	case "breakpoints", "bl":
		return d.cmdBreakpoints(args)
	case "watch", "w":
		return d.cmdWatch(args)
	case "unwatch":
		return d.cmdUnwatch(args)
	case "watchpoints", "wl":
		return d.cmdWatchpoints(args)
	case "print-mode":
		return d.cmdPrintMode(args)
	case "reset":
		return d.cmdRun(nil)
	case "help", "h":
		return d.cmdHelp(args)
	default:
		return fmt.Errorf("unknown command: %s (try 'help')", cmd)
	}
}

// cmdRun restarts program execution from the beginning
func (d *Debugger) cmdRun(_ []string) error {
	d.Machine.Reset()
	d.Machine.Start()
	d.Running = true

	d.Println("Starting program execution...")
	return nil
}

// cmdContinue continues execution from the current point
func (d *Debugger) cmdContinue(_ []string) error {
	if d.Machine.Terminated() {
		return fmt.Errorf("program is not running")
	}

	d.Running = true
	return nil
}

// cmdStep executes a single instruction and shows where it stopped
func (d *Debugger) cmdStep(_ []string) error {
	if err := d.StepOnce(); err != nil {
		return err
	}
	if wp, old, hit := d.Watchpoints.Check(d.Machine); hit {
		d.Printf("Watchpoint %d (%s): 0x%02X -> 0x%02X\n", wp.ID, wp.Target, old, wp.LastValue)
	}
	if d.Machine.Terminated() {
		d.Println(d.terminationMessage())
		return nil
	}
	d.Printf("%s", d.FormatDisassembly(uint8(d.Machine.PC), 1))
	return nil
}

// cmdRegisters shows the register file
func (d *Debugger) cmdRegisters(_ []string) error {
	d.Printf("%s", d.FormatRegisters())
	return nil
}

// cmdMemory dumps memory: memory [addr] [rows]
func (d *Debugger) cmdMemory(args []string) error {
	start := uint8(0)
	rows := 4

	if len(args) > 0 {
		addr, err := d.ResolveAddress(args[0])
		if err != nil {
			return err
		}
		start = addr
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid row count: %s", args[1])
		}
		rows = n
	}

	d.Printf("%s", d.FormatMemory(start, rows))
	return nil
}

// cmdDisassemble lists instructions: disassemble [addr] [count]
func (d *Debugger) cmdDisassemble(args []string) error {
	start := uint8(d.Machine.PC & 0xFF)
	count := 8

	if len(args) > 0 {
		addr, err := d.ResolveAddress(args[0])
		if err != nil {
			return err
		}
		start = addr
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid instruction count: %s", args[1])
		}
		count = n
	}

	d.Printf("%s", d.FormatDisassembly(start, count))
	return nil
}

// cmdBreak sets a breakpoint: break <addr>
func (d *Debugger) cmdBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break <address>")
	}

	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}

	bp := d.Breakpoints.Add(address)
	d.Printf("Breakpoint %d at 0x%02X\n", bp.ID, address)
	return nil
}

// cmdDelete deletes one breakpoint by ID, or all of them
func (d *Debugger) cmdDelete(args []string) error {
	if len(args) == 0 {
		d.Breakpoints.Clear()
		d.Println("All breakpoints deleted")
		return nil
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}
	if err := d.Breakpoints.Delete(id); err != nil {
		return err
	}

	d.Printf("Breakpoint %d deleted\n", id)
	return nil
}

// cmdBreakpoints lists all breakpoints
func (d *Debugger) cmdBreakpoints(_ []string) error {
	list := d.Breakpoints.List()
	if len(list) == 0 {
		d.Println("No breakpoints set")
		return nil
	}

	for _, bp := range list {
		state := "enabled"
		if !bp.Enabled {
			state = "disabled"
		}
		d.Printf("%d: 0x%02X (%s, hit %d times)\n", bp.ID, bp.Address, state, bp.HitCount)
	}
	return nil
}

// cmdWatch sets a watchpoint on a register (by name) or a memory cell
// (by address): watch <reg|addr>
func (d *Debugger) cmdWatch(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: watch <register|address>")
	}

	target := strings.ToLower(args[0])
	if reg, ok := isa.RegisterByName(target); ok {
		wp := d.Watchpoints.AddRegister(reg, d.Machine.Registers[reg])
		d.Printf("Watchpoint %d on register %s\n", wp.ID, wp.Target)
		return nil
	}

	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}
	wp := d.Watchpoints.AddMemory(address, d.Machine.Memory[address])
	d.Printf("Watchpoint %d on %s\n", wp.ID, wp.Target)
	return nil
}

// cmdUnwatch deletes one watchpoint by ID, or all of them
func (d *Debugger) cmdUnwatch(args []string) error {
	if len(args) == 0 {
		d.Watchpoints.Clear()
		d.Println("All watchpoints deleted")
		return nil
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid watchpoint ID: %s", args[0])
	}
	if err := d.Watchpoints.Delete(id); err != nil {
		return err
	}

	d.Printf("Watchpoint %d deleted\n", id)
	return nil
}

// cmdWatchpoints lists all watchpoints
func (d *Debugger) cmdWatchpoints(_ []string) error {
	list := d.Watchpoints.List()
	if len(list) == 0 {
		d.Println("No watchpoints set")
		return nil
	}

	for _, wp := range list {
		state := "enabled"
		if !wp.Enabled {
			state = "disabled"
		}
		d.Printf("%d: %s = 0x%02X (%s, hit %d times)\n", wp.ID, wp.Target, wp.LastValue, state, wp.HitCount)
	}
	return nil
}

// cmdPrintMode shows or sets the number format used by the register and
// memory views: print-mode [hex|dec|both]
func (d *Debugger) cmdPrintMode(args []string) error {
	if len(args) == 0 {
		d.Printf("Number format: %s\n", d.NumberFormat)
		return nil
	}

	mode := strings.ToLower(args[0])
	switch mode {
	case "hex", "dec", "both":
		d.NumberFormat = mode
		d.Printf("Number format set to %s\n", mode)
		return nil
	default:
		return fmt.Errorf("unknown number format: %s (use hex, dec or both)", args[0])
	}
}

// cmdHelp shows command help
func (d *Debugger) cmdHelp(_ []string) error {
	d.Print(`Commands:
  run, r             Restart program execution from the beginning
  continue, c        Continue execution until breakpoint, watchpoint or halt
  step, s            Execute a single instruction
  registers, regs    Show registers and machine status
  memory, mem [A] [N]   Dump N rows of memory from address A
  disassemble, dis [A] [N]  List N instructions from address A
  break, b ADDR      Set a breakpoint at an address
  delete, d [ID]     Delete a breakpoint (or all)
  breakpoints, bl    List breakpoints
  watch, w TARGET    Watch a register or memory address for changes
  unwatch [ID]       Delete a watchpoint (or all)
  watchpoints, wl    List watchpoints
  print-mode [FMT]   Show or set the number format: hex, dec, both
  help, h            Show this help
  quit, q            Exit the debugger
`)
	return nil
}

// Print writes output to the debugger's output buffer
func (d *Debugger) Print(s string) {
	d.Output.WriteString(s)
}
