package main

import (
	"github.com/tzstamp/tzstamp/command/root"
)

func main() {
	root.NewRootCommand().Execute()
}
