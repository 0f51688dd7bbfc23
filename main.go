package main

import "optimg/cmd"

func main() {
	cmd.Execute()
}
