package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cmdMain = &cobra.Command{
	Use:   "avatarnftd",
	Short: "Avatar NFT issuance daemon",
	Run:   printUsageAndExit1,
}

var flagMain struct {
	ConfigFile string
}

func init() {
	cmdMain.PersistentFlags().StringVarP(&flagMain.ConfigFile, "config", "c", "", "Configuration file (json, yaml or toml)")
}

func main() {
	cmdMain.Execute()
}

func printUsageAndExit1(cmd *cobra.Command, args []string) {
	_ = cmd.Usage()
	os.Exit(1)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func check(err error) {
	if err != nil {
		fatalf("%v", err)
	}
}

func checkf(err error, format string, otherArgs ...interface{}) {
	if err != nil {
		fatalf(format+": %v", append(otherArgs, err)...)
	}
}
