// walletd binds a KYC credential session to a wallet account and exposes it
// to local presentation consumers, either as an HTTP service or as one-shot
// commands.
package main

import (
	"context"
	"os"

	"kycpass/internal/platform/config"
)

func main() {
	root := newRootCommand(config.FromEnv(), os.Stdout, os.Stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(exitCode(err))
	}
}
