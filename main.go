package main

import "github.com/darshan-golchha/code-complexity/cmd"

func main() {
	cmd.Execute()
}
