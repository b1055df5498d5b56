package main

import "github.com/frahmantamala/loan-servicing/cmd"

func main() {
	cmd.Execute()
}
