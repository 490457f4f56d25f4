package main

import "github.com/KaramelBytes/salespipe-cli/cmd"

func main() {
	cmd.Execute()
}
