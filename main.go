package main

import (
	"os"

	"github.com/varalys/pipescan/cmd/pipescan"
)

func main() {
	os.Exit(pipescan.Execute())
}
