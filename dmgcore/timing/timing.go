// Package timing holds the DMG's fixed hardware clock constants shared by
// the CPU, APU, and timer components. It carries no scheduling logic of its
// own; real-time frame pacing is a host concern outside this core.
package timing

const (
	// CPUFrequency is the Game Boy's system clock, in T-cycles per second.
	CPUFrequency = 4194304
	// CyclesPerFrame is the number of T-cycles in one 59.7 Hz video frame.
	CyclesPerFrame = 70224
)
