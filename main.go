package main

import "FirstContact/cmd"

func main() {
	cmd.Execute()
}
