package main

import (
	"flag"
	"fmt"
	"os"

	"cryout/core/appbootstrap"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the YAML config file")
	flag.Parse()

	var err error
	switch flag.Arg(0) {
	case "seed":
		err = appbootstrap.Seed(*configPath)
	case "", "serve":
		err = appbootstrap.Run(*configPath)
	default:
		err = fmt.Errorf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
