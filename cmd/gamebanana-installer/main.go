package main

import "go-gamebanana-install/cmd/gamebanana-installer/cmd"

func main() {
	cmd.Execute()
}
