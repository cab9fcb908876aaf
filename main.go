package main

import "github.com/kamusis/nlpm/cmd"

func main() {
	cmd.Execute()
}
