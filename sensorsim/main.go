// Command sensorsim simulates messages taking random walks through a network
// of sensors and reports how many hops they took.
package main

import (
	"github.com/sarchlab/sensorsim/sensorsim/cmd"
	"github.com/tebeka/atexit"
)

func main() {
	atexit.Exit(cmd.Execute())
}
