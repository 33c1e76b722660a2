package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	cmd := NewRootCmd()
	cmd.Version = version
	if err := cmd.Execute(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}
