package main

import (
	"context"
	"os"

	"tapboard/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
