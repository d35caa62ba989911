package main

import (
	"os"

	memstatedcmder "github.com/loomware/memstate/cmd/memstated"
)

func main() {
	cmd := memstatedcmder.NewMemstatedCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
