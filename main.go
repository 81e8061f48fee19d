package main

import "github.com/Murega14/agrilink/internal/cmd"

func main() {
	cmd.Execute()
}
