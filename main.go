package main

import "github.com/Tiliavir/punchsync/cmd"

func main() {
	cmd.Execute()
}
