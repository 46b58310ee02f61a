package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "clustopherctl",
		Short: "Hierarchical point clustering engine",
		Long:  "clustopherctl serves and benchmarks the cluster package's hierarchical clustering engine.",
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newBenchCommand())
	root.AddCommand(newLoadCommand())
	return root
}

func newLogger() *zap.SugaredLogger {
	log, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return log.Sugar()
}
