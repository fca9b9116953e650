package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-sylar/sylar/fiber"
	"github.com/go-sylar/sylar/ioruntime"
	"github.com/go-sylar/sylar/logpipe"
)

func newRunCommand() *cobra.Command {
	var workers int
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a demo workload on an IOManager for a fixed duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(workers, duration)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 3, "IOManager worker thread count")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 2*time.Second, "how long to run before stopping")
	return cmd
}

func runDemo(workers int, duration time.Duration) error {
	log := logpipe.Get("sylard")
	log.SetLevel(logpipe.LevelDebug)

	m, err := ioruntime.NewIOManager(workers, true, "sylard")
	if err != nil {
		return fmt.Errorf("sylard: new io manager: %w", err)
	}
	defer m.Close()

	var ticks int
	f := fiber.New(func() {
		for {
			ticks++
			log.Infof(0, fiber.CurrentID(), "tick %d", ticks)
			time.Sleep(50 * time.Millisecond)
			fiber.YieldToReady()
		}
	}, 0, false)
	if err := m.ScheduleFiber(f); err != nil {
		return err
	}

	go func() {
		time.Sleep(duration)
		m.Stop()
	}()

	m.Start()
	log.Infof(0, 0, "sylard: stopped after %d ticks", ticks)
	return nil
}
