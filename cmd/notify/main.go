package main

import (
	"SchoolNotify/internal/bootstrap"
	pkg "SchoolNotify/pkg/routes"

	"go.uber.org/fx"
)

func main() {
	bootstrap.Loadenv()
	app := fx.New(
		pkg.EchoModules,
	)

	app.Run()
}
