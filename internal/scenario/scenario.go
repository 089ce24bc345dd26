// Package scenario describes kernel workloads in HCL and runs them on the
// simulated port.
//
// A scenario declares kernel objects and threads. Each thread runs a list of
// op blocks, optionally in a loop:
//
//	kernel {
//	  duration = 100
//	}
//
//	mutex "m" {}
//
//	thread "lo" {
//	  priority = prio.normal - 1
//	  op "lock"   { target = "m" }
//	  op "spin"   { ticks = 5 }
//	  op "unlock" { target = "m" }
//	}
//
// Expressions can use prio.idle, prio.lowest, prio.normal and prio.highest,
// and the timeouts infinite and immediate.
package scenario

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"sparkrt/kernel"
)

// DefaultDuration is the run length in ticks when the kernel block sets none.
const DefaultDuration = 1000

// DefaultStackSize is the stack given to scenario threads.
const DefaultStackSize = 512

// Scenario is a decoded scenario file.
type Scenario struct {
	Name       string           `hcl:"name,optional"`
	Kernel     *KernelSpec      `hcl:"kernel,block"`
	Semaphores []*SemaphoreSpec `hcl:"semaphore,block"`
	Mutexes    []*MutexSpec     `hcl:"mutex,block"`
	Events     []*EventSpec     `hcl:"event,block"`
	Mailboxes  []*MailboxSpec   `hcl:"mailbox,block"`
	Threads    []*ThreadSpec    `hcl:"thread,block"`
	IRQs       []*IRQSpec       `hcl:"irq,block"`
}

// KernelSpec selects kernel policies. Unset fields keep the defaults of
// kernel.DefaultConfig.
type KernelSpec struct {
	Duration            uint32  `hcl:"duration,optional"`
	Quantum             *uint32 `hcl:"quantum,optional"`
	Debug               *bool   `hcl:"debug,optional"`
	PriorityInheritance *bool   `hcl:"priority_inheritance,optional"`
	MessagesByPriority  bool    `hcl:"messages_by_priority,optional"`
}

type SemaphoreSpec struct {
	Name  string `hcl:"name,label"`
	Count int32  `hcl:"count,optional"`
}

type MutexSpec struct {
	Name string `hcl:"name,label"`
}

type EventSpec struct {
	Name string `hcl:"name,label"`
}

type MailboxSpec struct {
	Name string `hcl:"name,label"`
	Size int    `hcl:"size"`
}

// ThreadSpec describes a thread. It is created at tick Start and runs its
// ops Loop times, forever when Loop is zero.
type ThreadSpec struct {
	Name     string    `hcl:"name,label"`
	Priority uint8     `hcl:"priority"`
	Start    uint32    `hcl:"start,optional"`
	Loop     *uint32   `hcl:"loop,optional"`
	Stack    int       `hcl:"stack,optional"`
	Ops      []*OpSpec `hcl:"op,block"`

	DefRange hcl.Range `hcl:",def_range"`
}

// OpSpec is one step of a thread. Which attributes apply depends on Kind.
type OpSpec struct {
	Kind     string  `hcl:"kind,label"`
	Target   string  `hcl:"target,optional"`
	Ticks    uint32  `hcl:"ticks,optional"`
	Timeout  *uint32 `hcl:"timeout,optional"`
	Mask     uint32  `hcl:"mask,optional"`
	Value    string  `hcl:"value,optional"`
	Reply    int32   `hcl:"reply,optional"`
	Code     int32   `hcl:"code,optional"`
	Count    int32   `hcl:"count,optional"`
	Priority uint8   `hcl:"priority,optional"`
	Text     string  `hcl:"text,optional"`

	DefRange hcl.Range `hcl:",def_range"`
}

// IRQSpec raises interrupt Line at the ticks in At and every Every ticks.
// The handler signals the semaphore named by Signal and broadcasts Mask on
// the event source named by Broadcast.
type IRQSpec struct {
	Name      string   `hcl:"name,label"`
	Line      uint8    `hcl:"line"`
	At        []uint32 `hcl:"at,optional"`
	Every     uint32   `hcl:"every,optional"`
	Signal    string   `hcl:"signal,optional"`
	Broadcast string   `hcl:"broadcast,optional"`
	Mask      uint32   `hcl:"mask,optional"`

	DefRange hcl.Range `hcl:",def_range"`
}

// Duration returns the run length in ticks.
func (s *Scenario) Duration() uint32 {
	if s.Kernel == nil || s.Kernel.Duration == 0 {
		return DefaultDuration
	}
	return s.Kernel.Duration
}

// Config returns the kernel configuration the scenario asks for.
func (s *Scenario) Config() kernel.Config {
	cfg := kernel.DefaultConfig()
	if ks := s.Kernel; ks != nil {
		if ks.Quantum != nil {
			cfg.Quantum = kernel.Interval(*ks.Quantum)
		}
		if ks.Debug != nil {
			cfg.Debug = *ks.Debug
		}
		if ks.PriorityInheritance != nil {
			cfg.PriorityInheritance = *ks.PriorityInheritance
		}
		cfg.MessagesByPriority = ks.MessagesByPriority
	}
	return cfg
}

// EvalContext returns the variables available to scenario expressions.
func EvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"prio": cty.ObjectVal(map[string]cty.Value{
				"idle":    cty.NumberIntVal(int64(kernel.PrioIdle)),
				"lowest":  cty.NumberIntVal(int64(kernel.PrioLowest)),
				"normal":  cty.NumberIntVal(int64(kernel.PrioNormal)),
				"highest": cty.NumberIntVal(int64(kernel.PrioHighest)),
			}),
			"infinite":  cty.NumberUIntVal(uint64(kernel.TimeInfinite)),
			"immediate": cty.NumberUIntVal(uint64(kernel.TimeImmediate)),
		},
	}
}

// Parse decodes and validates a scenario. filename is used in diagnostics
// and as the default name.
func Parse(src []byte, filename string) (*Scenario, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", filename, diags)
	}
	var s Scenario
	if diags := gohcl.DecodeBody(f.Body, EvalContext(), &s); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %w", filename, diags)
	}
	if s.Name == "" {
		s.Name = filename
	}
	if diags := s.validate(); diags.HasErrors() {
		return nil, fmt.Errorf("invalid scenario %s: %w", filename, diags)
	}
	return &s, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(src, path)
}
