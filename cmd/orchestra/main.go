package main

import (
	"fmt"
	"os"

	"github.com/hectormr206/orchestra/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "orchestra:", err)
		os.Exit(1)
	}
}
