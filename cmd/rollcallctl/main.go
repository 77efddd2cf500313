package main

import (
	"fmt"
	"os"

	"github.com/rpggio/rollcall/internal/config"
)

var Version = "dev"

func main() {
	rootCmd := newRootCmd(config.Load)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
