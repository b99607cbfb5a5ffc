package main

import "domain-manager/cmd"

func main() {
	cmd.Execute()
}
