package main

import "github.com/xetys/herd/cmd"

func main() {
	cmd.Execute()
}
