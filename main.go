package main

import "github.com/mselser95/kalshi-edge/cmd"

func main() {
	cmd.Execute()
}
