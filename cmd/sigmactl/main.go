package main

import (
	log "github.com/sirupsen/logrus"

	"sigmakit/cmd/sigmactl/root"
)

func main() {
	err := root.GetRootCmd().Execute()
	if err != nil {
		log.Fatalf("sigmactl failed: %s", err.Error())
	}
}
