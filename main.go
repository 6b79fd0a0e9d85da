package main

import (
	"os"

	"github.com/go-sso-gateway/go-sso-gateway/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
