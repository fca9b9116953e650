package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-sylar/sylar/config"
	"github.com/go-sylar/sylar/fiber"
	_ "github.com/go-sylar/sylar/ioruntime" // registers ioruntime.idle_timeout, ioruntime.max_armed_events
)

func newConfigDumpCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "config-dump",
		Short: "load a YAML config file and print every registered variable",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Importing fiber and ioruntime is enough to register their
			// package-level config variables (fiber.stack_size,
			// ioruntime.idle_timeout, ioruntime.max_armed_events) even
			// with nothing actually running, so config-dump reflects
			// every variable a live sylard process would have.
			_ = fiber.DefaultStackSize()

			if configPath != "" {
				data, err := os.ReadFile(configPath)
				if err != nil {
					return err
				}
				if err := config.LoadYAML(data); err != nil {
					return err
				}
			}

			config.Visit(func(v config.BaseVar) {
				fmt.Printf("%s (%s) = %s\n", v.Name(), v.TypeTag(), v.ToText())
				if d := v.Description(); d != "" {
					fmt.Printf("    %s\n", d)
				}
			})
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	return cmd
}
