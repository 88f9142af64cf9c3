package main

import "github.com/kozaktomas/library-kiosk/cmd"

func main() {
	cmd.Execute()
}
