package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "hrdesk",
		Short: "HR knowledge agent: answers employee questions from the handbook and the web",
	}
	root.AddCommand(serveCMD(), migrateCMD(), askCMD(), seedCMD(), reindexCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
