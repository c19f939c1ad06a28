package main

import (
	"fmt"
	"os"

	"github.com/mascguy/crush-shell/cmd/crush"
)

func main() {
	if err := crush.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
