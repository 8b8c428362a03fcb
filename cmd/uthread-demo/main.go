//go:build unix

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	uthread "github.com/regevino/go-uthreads"
	"github.com/regevino/go-uthreads/internal/logging"
)

func main() {
	var (
		quantaStr  = flag.String("quanta", "100000,50000", "comma-separated quantum microseconds, indexed by priority")
		numThreads = flag.Int("threads", 4, "number of demo worker threads to spawn")
		logLevel   = flag.String("log-level", "info", "log level: debug, info, warn, or error")
	)
	flag.Parse()

	quanta, err := parseQuanta(*quantaStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -quanta %q: %v\n", *quantaStr, err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q: %v\n", *logLevel, err)
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig()
	logConfig.Level = level
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	pinToCPU0()

	if err := uthread.Init(quanta); err != nil {
		logger.Error("init failed", "error", err)
		os.Exit(1)
	}

	logger.Info("scheduler initialised", "priorities", len(quanta))

	for i := 0; i < *numThreads; i++ {
		priority := i % len(quanta)
		var id int
		id, err = uthread.Spawn(func() {
			for n := 0; n < 3; n++ {
				logger.Debug("worker tick", "worker", i, "thread", id, "n", n)
				uthread.Checkpoint(id)
			}
		}, priority)
		if err != nil {
			logger.Error("spawn failed", "worker", i, "error", err)
			continue
		}
		logger.Info("spawned worker", "worker", i, "thread", id, "priority", priority)
	}

	// Dump a metrics snapshot on SIGUSR1.
	dumpCh := make(chan os.Signal, 1)
	signal.Notify(dumpCh, syscall.SIGUSR1)
	go func() {
		for range dumpCh {
			snap, err := uthread.Metrics()
			if err != nil {
				logger.Error("metrics snapshot failed", "error", err)
				continue
			}
			logger.Info("metrics snapshot",
				"dispatches", snap.Dispatches,
				"ticks", snap.Ticks,
				"spawns", snap.Spawns,
				"terminates", snap.Terminates,
				"blocks", snap.Blocks,
				"resumes", snap.Resumes,
				"blocked", snap.BlockedCount)
		}
	}()

	fmt.Printf("Send SIGUSR1 (kill -USR1 %d) to dump scheduler metrics\n", os.Getpid())
	fmt.Printf("Press Ctrl+C to terminate the main thread and exit\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("terminating main thread")
	_ = uthread.Terminate(0) // exits the process
}

// pinToCPU0 locks the main goroutine to its OS thread and pins that
// thread to CPU 0. The user threads run on their own goroutines, which
// are not locked to this OS thread and are not pinned by this call.
// Best-effort: an unsupported or restricted environment just runs
// without pinning.
func pinToCPU0() {
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(0)
	_ = unix.SchedSetaffinity(0, &set)
}

func parseQuanta(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
