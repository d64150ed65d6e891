package main

import "github.com/pumbaabetiverse/sendswin-core/cmd/settler-cli/cmd"

func main() {
	cmd.Execute()
}
