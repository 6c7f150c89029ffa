package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/pairchat/pairchat/internal/app"
	"github.com/pairchat/pairchat/internal/profile"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	storeFlag := flag.String("store", "", "directory store path (overrides config)")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fxApp := fx.New(
		app.Module(app.Params{
			Profile:   profileName,
			StorePath: profile.ResolveStorePath(*storeFlag),
		}),
	)

	fxApp.Run()
}
