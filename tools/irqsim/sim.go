package irqsim

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/kballard/go-shellquote"
	"github.com/sigurn/crc8"
	"golang.org/x/sync/errgroup"

	"github.com/clktmr/kirq/irq"
	"github.com/clktmr/kirq/sched"
	"github.com/clktmr/kirq/sim"
)

var traceCRC8 = crc8.MakeTable(crc8.CRC8)

var colors = map[string]*color.Color{
	"isr":   color.New(color.FgCyan),
	"asr":   color.New(color.FgGreen),
	"run":   color.New(color.FgGreen, color.Bold),
	"error": color.New(color.FgRed),
	"dump":  color.New(color.FgYellow),
}

var errUsage = errors.New("usage")

// Sim runs script commands against a simulated kernel and records the events
// they cause.
type Sim struct {
	k       *sim.Kernel
	started bool
	timeout time.Duration

	threads  map[string]sched.ID
	requests map[string]*irq.Request

	mu    sync.Mutex // guards out and trace
	out   io.Writer
	trace []string
}

func New(cfg irq.Config, out io.Writer) *Sim {
	return &Sim{
		k:        sim.New(cfg),
		timeout:  5 * time.Second,
		threads:  make(map[string]sched.ID),
		requests: make(map[string]*irq.Request),
		out:      out,
	}
}

func (s *Sim) Close() {
	s.k.Close()
}

// event prints and records a line of the trace. It is called from the
// script, from ISRs and from kernel threads.
func (s *Sim) event(kind string, format string, args ...any) {
	line := kind + " " + fmt.Sprintf(format, args...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = append(s.trace, line)
	if c, ok := colors[kind]; ok {
		c.Fprintln(s.out, line)
	} else {
		fmt.Fprintln(s.out, line)
	}
}

// Trace returns the events recorded so far.
func (s *Sim) Trace() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.trace)
}

// Digest returns the CRC-8 of the trace, one event per line.
func (s *Sim) Digest() uint8 {
	csum := crc8.Init(traceCRC8)
	for _, line := range s.Trace() {
		csum = crc8.Update(csum, []byte(line+"\n"), traceCRC8)
	}
	return crc8.Complete(csum, traceCRC8)
}

// Run executes a script line by line. Kernel errors are recorded as events,
// malformed commands stop the script.
func (s *Sim) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		if err := s.Exec(scanner.Text()); err != nil {
			return fmt.Errorf("line %d: %w", lineno, err)
		}
	}
	return scanner.Err()
}

// Exec executes a single command.
func (s *Sim) Exec(line string) error {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	args, err := shellquote.Split(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "start":
		s.start()
		return nil
	case "thread":
		return s.thread(args[1:])
	case "register":
		return s.register(args[1:])
	case "release":
		return s.release(args[1:])
	case "dispatch":
		return s.dispatch(args[1:])
	case "storm":
		return s.storm(args[1:])
	case "post":
		return s.post(args[1:])
	case "cancel":
		return s.cancel(args[1:])
	case "sync":
		return s.sync()
	case "dump":
		s.dump()
		return nil
	}
	return fmt.Errorf("unknown command: %s", args[0])
}

func (s *Sim) kernelErr(cmd string, err error) {
	if err != nil {
		s.event("error", "%s: %v", cmd, err)
	}
}

func (s *Sim) start() {
	if !s.started {
		s.started = true
		s.k.Start()
	}
}

func parseIRQ(arg string) (irq.IRQ, error) {
	n, err := strconv.ParseUint(arg, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid irq %q", arg)
	}
	return irq.IRQ(n), nil
}

func parsePriority(arg string) (irq.Priority, error) {
	n, err := strconv.ParseInt(arg, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid priority %q", arg)
	}
	return irq.Priority(n), nil
}

func (s *Sim) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(s.out)
	return fs
}

// thread <name> [-prio n]
func (s *Sim) thread(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: thread <name> [-prio n]", errUsage)
	}
	name := args[0]
	fs := s.flags("thread")
	priority := fs.Int("prio", 4, "thread priority")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if _, ok := s.threads[name]; ok {
		return fmt.Errorf("thread %s exists", name)
	}
	s.threads[name] = s.k.ASR(name, *priority, func() {
		s.event("asr", "%s", name)
	})
	return nil
}

func (s *Sim) request(name string) *irq.Request {
	r, ok := s.requests[name]
	if !ok {
		r = new(irq.Request)
		s.requests[name] = r
	}
	return r
}

func (s *Sim) entry(name string) irq.Entry {
	return func(arg any) {
		s.event("run", "%s %v", name, arg)
	}
}

// register <irq> [-isr none|done|asr|post] [-asr thread] [-arg value]
// [-req name] [-prio n]
func (s *Sim) register(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: register <irq> [flags]", errUsage)
	}
	n, err := parseIRQ(args[0])
	if err != nil {
		return err
	}
	fs := s.flags("register")
	kind := fs.String("isr", "asr", "none | done | asr | post")
	asrName := fs.String("asr", "", "thread woken after the isr, default irq daemon")
	arg := fs.String("arg", "", "isr argument")
	reqName := fs.String("req", "", "request posted by a post isr")
	priority := fs.Int("prio", 0, "priority of the posted request")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	asr := sched.None
	if *asrName != "" {
		id, ok := s.threads[*asrName]
		if !ok {
			return fmt.Errorf("unknown thread %s", *asrName)
		}
		asr = id
	}

	var isr irq.ISR
	switch *kind {
	case "none":
	case "done", "asr":
		ret := irq.Done
		if *kind == "asr" {
			ret = irq.CallASR
		}
		isr = func(arg any) irq.Result {
			s.event("isr", "%d %v", n, arg)
			return ret
		}
	case "post":
		if *reqName == "" {
			return fmt.Errorf("%w: post isr needs -req", errUsage)
		}
		r := s.request(*reqName)
		entry := s.entry(*reqName)
		p := irq.Priority(*priority)
		isr = func(arg any) irq.Result {
			s.event("isr", "%d %v", n, arg)
			s.kernelErr("post", s.k.IRQ.Post(r, p, entry, arg))
			return irq.Done
		}
	default:
		return fmt.Errorf("unknown isr kind %q", *kind)
	}

	s.kernelErr("register", s.k.IRQ.Register(n, isr, asr, *arg))
	return nil
}

// release <irq>
func (s *Sim) release(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: release <irq>", errUsage)
	}
	n, err := parseIRQ(args[0])
	if err != nil {
		return err
	}
	s.kernelErr("release", s.k.IRQ.Release(n))
	return nil
}

// dispatch <irq>...
func (s *Sim) dispatch(args []string) error {
	for _, arg := range args {
		n, err := parseIRQ(arg)
		if err != nil {
			return err
		}
		s.k.IRQ.Dispatch(n)
	}
	return nil
}

// storm <irq>... [-n count]
//
// Every listed line fires count times, each line from its own goroutine.
func (s *Sim) storm(args []string) error {
	var lines []irq.IRQ
	for len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		n, err := parseIRQ(args[0])
		if err != nil {
			return err
		}
		lines = append(lines, n)
		args = args[1:]
	}
	fs := s.flags("storm")
	count := fs.Int("n", 100, "dispatches per line")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var g errgroup.Group
	for _, n := range lines {
		g.Go(func() error {
			for range *count {
				s.k.IRQ.Dispatch(n)
			}
			return nil
		})
	}
	return g.Wait()
}

// post <request> <prio> [arg]
func (s *Sim) post(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: post <request> <prio> [arg]", errUsage)
	}
	p, err := parsePriority(args[1])
	if err != nil {
		return err
	}
	arg := ""
	if len(args) == 3 {
		arg = args[2]
	}
	s.kernelErr("post", s.k.IRQ.Post(s.request(args[0]), p, s.entry(args[0]), arg))
	return nil
}

// cancel <request>
func (s *Sim) cancel(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: cancel <request>", errUsage)
	}
	s.kernelErr("cancel", s.k.IRQ.Cancel(s.request(args[0])))
	return nil
}

// sync starts the kernel if necessary and waits until all deferred work ran.
func (s *Sim) sync() error {
	s.start()
	if !s.k.WaitIdle(s.timeout) {
		return errors.New("sync: kernel not idle")
	}
	return nil
}

func (s *Sim) dump() {
	for _, v := range s.k.IRQ.Vectors() {
		asr := "-"
		if v.ASR != sched.None {
			asr = s.k.Sched.Name(v.ASR)
		}
		s.event("dump", "vector %d irq=%d state=%v isr=%t asr=%q arg=%v",
			v.Slot, v.IRQ, v.State, v.ISR, asr, v.Arg)
	}
	names := slices.Sorted(maps.Keys(s.requests))
	for _, name := range names {
		if p, ok := s.k.IRQ.QueuedPriority(s.requests[name]); ok {
			s.event("dump", "request %s prio=%d", name, p)
		}
	}
	s.event("dump", "pending %d", s.k.IRQ.Pending())
}
