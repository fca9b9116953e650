package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "sylard",
		Short: "sylard runs a demo fiber/scheduler/IOManager workload",
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newConfigDumpCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
