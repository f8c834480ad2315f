package main

import "sprintboard/cmd"

func main() {
	cmd.Execute()
}
