package main

import "github.com/mvp-joe/gams-ide/internal/cli"

func main() {
	cli.Execute()
}
