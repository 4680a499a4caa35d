package main

import (
	"os"

	"github.com/jonwraymond/heapcache/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
