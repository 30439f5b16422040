package main

import "settlement-core/cmd/settle-cli/cmd"

func main() {
	cmd.Execute()
}
