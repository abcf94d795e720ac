package main

import "oriontv/cmd"

func main() {
	cmd.Execute()
}
