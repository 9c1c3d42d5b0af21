package safedrive

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// Process-wide signal state, per spec.md §4.4 and §9 "Process-wide signal
// state": one installer, one atomic halt flag, one registry of guard
// conditions; registration and deregistration are serialized.
var (
	signalOnce   sync.Once
	signalHalted atomic.Bool
	signalGroup  errgroup.Group

	signalRegistry = struct {
		mu     sync.Mutex
		guards map[*GuardCondition]struct{}
	}{guards: make(map[*GuardCondition]struct{})}
)

// installSignalHandler installs the process-wide OS signal trap exactly
// once; later calls are no-ops. Every Selector calls this on construction
// (it registers its own shutdown guard regardless of whether anything else
// in the process already did).
func installSignalHandler() {
	signalOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		signalGroup.Go(func() error {
			<-ch
			signalHalted.Store(true)
			logf(LevelWarn, "halt flag set by signal", nil)
			signalRegistry.mu.Lock()
			guards := make([]*GuardCondition, 0, len(signalRegistry.guards))
			for g := range signalRegistry.guards {
				guards = append(guards, g)
			}
			signalRegistry.mu.Unlock()
			for _, g := range guards {
				_ = g.Trigger()
			}
			return nil
		})
	})
}

// Halted reports whether the process-wide halt flag has been set by a
// signal. Selector.Wait checks this both before and after its blocking
// wait call (spec.md §4.6 step 4).
func Halted() bool { return signalHalted.Load() }

// registerSignalGuard adds g to the set triggered on signal arrival.
func registerSignalGuard(g *GuardCondition) {
	installSignalHandler()
	signalRegistry.mu.Lock()
	signalRegistry.guards[g] = struct{}{}
	signalRegistry.mu.Unlock()
}

// unregisterSignalGuard removes g from the signal registry.
func unregisterSignalGuard(g *GuardCondition) {
	signalRegistry.mu.Lock()
	delete(signalRegistry.guards, g)
	signalRegistry.mu.Unlock()
}
