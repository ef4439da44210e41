package main

import (
	"github.com/AzielCF/az-reply/cmd"
)

func main() {
	cmd.Execute()
}
