package main

import "projectdesk/cmd/projectdesk/commands"

func main() {
	commands.Execute()
}
