package main

import (
	"os"

	"github.com/GoAssetDesk/GoAssetDesk/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
