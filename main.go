package main

import "github.com/reviewlens/reviewlens/cmd"

func main() {
	cmd.Execute()
}
