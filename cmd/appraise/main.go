package main

import (
	"fmt"
	"os"

	"github.com/example/appraise/internal/cli"
)

func main() {
	err := cli.RootCmd().Execute()
	cli.Shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
