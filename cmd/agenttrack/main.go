package main

import "github.com/jcmd13/subAgentTracking-sub001/internal/cli"

func main() {
	cli.Execute()
}
