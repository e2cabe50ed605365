package main

import (
	"log"

	"github.com/parchmail/parchmail/cmd/parchctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
