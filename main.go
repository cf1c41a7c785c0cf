package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mikaelmello/reachping/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, cmd.ErrUnreachable) {
			fmt.Fprintf(os.Stderr, "reachping: %s\n", err)
		}
		os.Exit(1)
	}
}
