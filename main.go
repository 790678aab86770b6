package main

import (
	"os"

	"github.com/datacentricdesign/profile-api/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
