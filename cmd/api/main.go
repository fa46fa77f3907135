package main

import (
	"github.com/shinyyama/boilagbe-backend/internal/app"
	"go.uber.org/fx"
)

func main() {
	fx.New(app.Module()).Run()
}
