package main

import "vistoria/cmd/client/cmd"

func main() {
	cmd.Execute()
}
