package debugger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/regvm/regvm/isa"
	"github.com/regvm/regvm/vm"
)

// Watchpoint monitors a register or a memory cell and triggers when its
// value changes between instructions. Value-change detection is the only
// mode: distinguishing reads from writes would need hooks inside the
// machine's execute step.
type Watchpoint struct {
	ID         int
	Target     string // display form: a register name or "$0xNN"
	IsRegister bool
	Register   isa.Register // register index if IsRegister
	Address    uint8        // memory address otherwise
	Enabled    bool
	LastValue  uint8
	HitCount   int
}

// WatchpointManager manages all watchpoints
type WatchpointManager struct {
	mu          sync.RWMutex
	watchpoints map[int]*Watchpoint
	nextID      int
}

// NewWatchpointManager creates a new watchpoint manager
func NewWatchpointManager() *WatchpointManager {
	return &WatchpointManager{
		watchpoints: make(map[int]*Watchpoint),
		nextID:      1,
	}
}

// AddRegister adds a watchpoint on a register. The current machine value
// seeds the change detection.
func (wm *WatchpointManager) AddRegister(reg isa.Register, current uint8) *Watchpoint {
	return wm.add(&Watchpoint{
		Target:     isa.RegisterName(reg),
		IsRegister: true,
		Register:   reg,
		LastValue:  current,
	})
}

// AddMemory adds a watchpoint on a memory cell.
func (wm *WatchpointManager) AddMemory(address uint8, current uint8) *Watchpoint {
	return wm.add(&Watchpoint{
		Target:    fmt.Sprintf("$0x%02X", address),
		Address:   address,
		LastValue: current,
	})
}

func (wm *WatchpointManager) add(wp *Watchpoint) *Watchpoint {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wp.ID = wm.nextID
	wp.Enabled = true
	wm.watchpoints[wp.ID] = wp
	wm.nextID++

	return wp
}

// Delete removes a watchpoint by ID
func (wm *WatchpointManager) Delete(id int) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if _, exists := wm.watchpoints[id]; !exists {
		return fmt.Errorf("watchpoint %d not found", id)
	}

	delete(wm.watchpoints, id)
	return nil
}

// Clear removes all watchpoints
func (wm *WatchpointManager) Clear() {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wm.watchpoints = make(map[int]*Watchpoint)
}

// List returns all watchpoints ordered by ID
func (wm *WatchpointManager) List() []*Watchpoint {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	list := make([]*Watchpoint, 0, len(wm.watchpoints))
	for _, wp := range wm.watchpoints {
		list = append(list, wp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Count returns the number of watchpoints
func (wm *WatchpointManager) Count() int {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	return len(wm.watchpoints)
}

// Check compares every enabled watchpoint against the machine and returns
// the first whose value changed, together with the value it held before.
// The watchpoint's stored value is updated to the new one.
func (wm *WatchpointManager) Check(m *vm.Machine) (wp *Watchpoint, old uint8, hit bool) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	ids := make([]int, 0, len(wm.watchpoints))
	for id := range wm.watchpoints {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		wp := wm.watchpoints[id]
		if !wp.Enabled {
			continue
		}

		var current uint8
		if wp.IsRegister {
			current = m.Registers[wp.Register%isa.NumRegisters]
		} else {
			current = m.Memory[wp.Address]
		}

		if current != wp.LastValue {
			old := wp.LastValue
			wp.LastValue = current
			wp.HitCount++
			return wp, old, true
		}
	}

	return nil, 0, false
}
