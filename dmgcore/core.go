// Package dmgcore wires the CPU, address bus, timer, and APU into a single
// emulation core. It does not implement a PPU, joypad scanner, or audio
// device sink; those stay behind the narrow interfaces memory.MMU exposes
// for a host to drive.
package dmgcore

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/arata-dev/dmgcore/dmgcore/addr"
	"github.com/arata-dev/dmgcore/dmgcore/cpu"
	"github.com/arata-dev/dmgcore/dmgcore/memory"
	"github.com/arata-dev/dmgcore/dmgcore/timing"
)

// bootDIVSeed is the system counter's value immediately after the DMG boot
// ROM hands off control, taken from the teacher's core.go.
const bootDIVSeed uint16 = 0xABCC

// Emulator is the root struct and entry point for driving the core.
type Emulator struct {
	cpu *cpu.CPU
	mem *memory.MMU

	instructionCount uint64
	frameCount       uint64
}

func newEmulator(mem *memory.MMU) *Emulator {
	e := &Emulator{mem: mem, cpu: cpu.New(mem)}
	mem.SetTimerSeed(bootDIVSeed)
	return e
}

// New creates an emulator with no cartridge loaded.
func New() *Emulator {
	return newEmulator(memory.New())
}

// NewWithFile loads the ROM at path and creates an emulator for it.
func NewWithFile(path string) (*Emulator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dmgcore: reading ROM: %w", err)
	}

	cart, err := memory.NewCartridgeWithData(data)
	if err != nil {
		return nil, fmt.Errorf("dmgcore: parsing ROM: %w", err)
	}
	slog.Debug("loaded ROM", "title", cart.Title(), "size", len(data))

	mem, err := memory.NewWithCartridge(cart)
	if err != nil {
		return nil, fmt.Errorf("dmgcore: loading cartridge: %w", err)
	}

	return newEmulator(mem), nil
}

// Step executes exactly one CPU instruction (or interrupt dispatch) and
// ticks the bus's timer, serial port, and APU by the same cycle count.
// Returns the number of T-cycles consumed.
func (e *Emulator) Step() int {
	cycles := e.cpu.Step()
	e.mem.Tick(cycles)
	e.mem.APU.Tick(cycles)
	e.instructionCount++
	return cycles
}

// RunUntilFrame steps the core until it has consumed one video frame's
// worth of T-cycles (70224, the DMG's 59.7 Hz frame length), even though
// this core renders nothing itself; callers driving a PPU alongside it can
// use this as their synchronization unit.
func (e *Emulator) RunUntilFrame() {
	total := 0
	for total < timing.CyclesPerFrame {
		total += e.Step()

		if kind, ok := e.cpu.Fault(); ok {
			slog.Error("CPU fault, halting frame", "kind", kind, "pc", fmt.Sprintf("0x%04X", e.cpu.PC()))
			return
		}
	}
	e.frameCount++
}

// CPU returns the core's CPU, for inspection or disassembly tooling.
func (e *Emulator) CPU() *cpu.CPU { return e.cpu }

// MMU returns the core's bus, for inspection or a host input/render layer.
func (e *Emulator) MMU() *memory.MMU { return e.mem }

// InstructionCount returns the number of Step calls executed so far.
func (e *Emulator) InstructionCount() uint64 { return e.instructionCount }

// FrameCount returns the number of RunUntilFrame calls completed so far.
func (e *Emulator) FrameCount() uint64 { return e.frameCount }

// HandleKeyPress forwards a joypad press to the bus.
func (e *Emulator) HandleKeyPress(key memory.JoypadKey) {
	e.mem.HandleKeyPress(key)
}

// HandleKeyRelease forwards a joypad release to the bus.
func (e *Emulator) HandleKeyRelease(key memory.JoypadKey) {
	e.mem.HandleKeyRelease(key)
}

// RequestInterrupt forwards an interrupt request to the bus, for a host's
// stubbed PPU to request VBlank/LCDSTAT on the core's behalf.
func (e *Emulator) RequestInterrupt(interrupt addr.Interrupt) {
	e.mem.RequestInterrupt(interrupt)
}

// SaveState serializes the full emulator state to a flat byte stream.
func (e *Emulator) SaveState() []byte {
	a, f, b, c, d, ee, h, l := e.cpu.Registers()
	return e.mem.SaveState(memory.CPUState{
		A: a, F: f, B: b, C: c, D: d, E: ee, H: h, L: l,
		SP: e.cpu.SP(), PC: e.cpu.PC(),
		Mode: uint8(e.cpu.Mode()), IME: e.cpu.IME(),
	})
}

// LoadState restores a byte stream previously produced by SaveState.
func (e *Emulator) LoadState(buf []byte) error {
	cs, err := e.mem.LoadState(buf)
	if err != nil {
		return err
	}
	e.cpu.Restore(cs.A, cs.F, cs.B, cs.C, cs.D, cs.E, cs.H, cs.L, cs.SP, cs.PC, cpu.Mode(cs.Mode), cs.IME)
	return nil
}
