package main

import (
	"os"

	"greetd/internal/app"
	"greetd/internal/runtime/signals"
	"greetd/pkg/logx"
)

func main() {
	src := signals.OS(signals.Options{Log: logx.NewConsole("WARN")})
	os.Exit(int(app.Main(os.Args[1:], src, logx.Logger{})))
}
