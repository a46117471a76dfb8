package main

import "github.com/MeKo-Tech/idcheck/cmd/idcheck/cmd"

func main() {
	cmd.Execute()
}
