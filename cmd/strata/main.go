package main

import "github.com/strata-tools/strata/internal/cmd"

func main() {
	cmd.Execute()
}
