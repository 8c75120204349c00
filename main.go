package main

import (
	"os"

	"github.com/mailrake/mailrake/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
