package main

import "github.com/viperML/bms-lock/cli"

func main() {
	cli.Execute()
}
