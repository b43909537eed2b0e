// Package main is the entry point for the User Center Service.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/sentinel-iam/cmd/user-center/app"
)

func main() {
	app.NewApp().Run()
}
