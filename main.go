package main

import "smart-locker-control/cmd"

func main() {
	cmd.Execute()
}
