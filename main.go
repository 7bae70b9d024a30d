package main

import "oraclebench/cmd"

func main() {
	cmd.Execute()
}
