package main

import (
	"os"

	"gatehouse.io/internal/obs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		obs.Logger().WithError(err).Error("gatectl failed")
		os.Exit(1)
	}
}
