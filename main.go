package main

import (
	"os"

	"github.com/soocke/wincap/cli"
	"github.com/soocke/wincap/domain/platform"
)

func main() {
	os.Exit(cli.Execute(NewLogger, platform.Open, os.Args[1:]))
}
