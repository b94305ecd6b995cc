package main

import "github.com/devicelab-dev/wizard-runner/pkg/cli"

func main() {
	cli.Execute()
}
