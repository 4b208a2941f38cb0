package main

import "github.com/oshokin/fall-alarm/cmd/fall-alarm-ctl/cmd"

func main() {
	cmd.Execute()
}
