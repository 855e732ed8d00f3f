package main

import "github.com/cameronsjo/chartroom/internal/cmd"

func main() {
	cmd.Execute()
}
