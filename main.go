package main

import "github.com/frahmantamala/gatepass/cmd"

func main() {
	cmd.Execute()
}
