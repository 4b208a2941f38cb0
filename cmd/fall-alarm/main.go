package main

import "github.com/oshokin/fall-alarm/cmd/fall-alarm/cmd"

func main() {
	cmd.Execute()
}
