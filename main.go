package main

import "fivem/resonance/cmd"

func main() {
	cmd.Execute()
}
