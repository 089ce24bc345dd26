package trace

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"sparkrt/kernel"
)

// Report summarises one kernel run.
type Report struct {
	RunID    string           `yaml:"run_id"`
	Name     string           `yaml:"name"`
	Ticks    uint32           `yaml:"ticks"`
	Switches uint64           `yaml:"switches"`
	Dropped  uint64           `yaml:"dropped_events,omitempty"`
	IRQs     map[uint8]uint64 `yaml:"irqs,omitempty"`
	Threads  []ThreadReport   `yaml:"threads"`
	Fault    *FaultReport     `yaml:"fault,omitempty"`
	Log      []string         `yaml:"log,omitempty"`
}

// ThreadReport is the per-thread part of a Report.
type ThreadReport struct {
	Name      string  `yaml:"name"`
	Priority  uint8   `yaml:"priority"`
	RunTicks  uint64  `yaml:"run_ticks"`
	Share     float64 `yaml:"share"`
	Switches  uint64  `yaml:"switches"`
	Preempted uint64  `yaml:"preempted"`
	Wakeups   uint64  `yaml:"wakeups"`
	Timeouts  uint64  `yaml:"timeouts"`
	Exit      string  `yaml:"exit,omitempty"`
}

// FaultReport describes the halt that ended a run.
type FaultReport struct {
	Kind   string `yaml:"kind"`
	Thread string `yaml:"thread"`
	Reason string `yaml:"reason"`
	Value  string `yaml:"value,omitempty"`
}

// NewReport builds a report from what r recorded up to now.
func NewReport(name string, r *Recorder, now kernel.Tick, fault *kernel.Fault) Report {
	rep := Report{
		RunID:    uuid.NewString(),
		Name:     name,
		Ticks:    uint32(now),
		Switches: r.Switches(),
		Dropped:  r.Dropped(),
	}
	for line, n := range r.IRQs() {
		if n == 0 {
			continue
		}
		if rep.IRQs == nil {
			rep.IRQs = make(map[uint8]uint64)
		}
		rep.IRQs[uint8(line)] = n
	}
	for _, st := range r.Threads(now) {
		tr := ThreadReport{
			Name:      st.Name,
			Priority:  uint8(st.Priority),
			RunTicks:  st.RunTicks,
			Switches:  st.Switches,
			Preempted: st.Preempted,
			Wakeups:   st.Wakeups,
			Timeouts:  st.Timeouts,
		}
		if now != 0 {
			tr.Share = float64(st.RunTicks) / float64(now)
		}
		if st.Exited {
			tr.Exit = st.ExitCode.String()
		}
		rep.Threads = append(rep.Threads, tr)
	}
	if fault != nil {
		rep.Fault = &FaultReport{Kind: fault.Kind.String(), Thread: fault.Thread, Reason: fault.Reason}
		if fault.Value != nil {
			rep.Fault.Value = fmt.Sprint(fault.Value)
		}
	}
	return rep
}

// WriteYAML encodes the report as YAML.
func (rep Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// WriteText writes a table meant for a terminal.
func (rep Report) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "%s  %s ticks  %s switches\n", rep.Name,
		humanize.Comma(int64(rep.Ticks)), humanize.Comma(int64(rep.Switches)))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "THREAD\tPRIO\tRUN\tSHARE\tSWITCHES\tPREEMPTED\tTIMEOUTS\tEXIT")
	for _, t := range rep.Threads {
		exit := t.Exit
		if exit == "" {
			exit = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.1f%%\t%s\t%s\t%s\t%s\n",
			t.Name, t.Priority, humanize.Comma(int64(t.RunTicks)), t.Share*100,
			humanize.Comma(int64(t.Switches)), humanize.Comma(int64(t.Preempted)),
			humanize.Comma(int64(t.Timeouts)), exit)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if rep.Fault != nil {
		fmt.Fprintf(w, "halted: %s in %q: %s", rep.Fault.Kind, rep.Fault.Thread, rep.Fault.Reason)
		if rep.Fault.Value != "" {
			fmt.Fprintf(w, ": %s", rep.Fault.Value)
		}
		fmt.Fprintln(w)
	}
	for _, l := range rep.Log {
		fmt.Fprintln(w, l)
	}
	return nil
}
