package main

import "taskremind/cmd"

func main() {
	cmd.Run()
}
