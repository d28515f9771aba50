package main

import "geminiproxy/cmd"

func main() {
	cmd.Execute()
}
