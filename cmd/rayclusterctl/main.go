package main

import (
	"os"

	flag "github.com/spf13/pflag"
	"k8s.io/cli-runtime/pkg/genericclioptions"

	cmd "github.com/ray-project/kuberay/rayclusterctl/pkg/cmd"
)

func main() {
	flags := flag.NewFlagSet("rayclusterctl", flag.ExitOnError)
	flag.CommandLine = flags

	root := cmd.NewRayClusterCtlCommand(genericclioptions.IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr})
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
