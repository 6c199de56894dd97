package main

import "github.com/kirillkom/scan-organizer/cmd/scan-organizer/cmd"

func main() {
	cmd.Execute()
}
