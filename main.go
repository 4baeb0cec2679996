//	@title			Conduit API
//	@version		1.0
//	@description	Conduit turns integration definitions into runnable projects and manages extensions
//	@BasePath		/api/v1

//	@tag.name			extensions
//	@tag.description	Extension upload, validation and lifecycle

//	@tag.name			integrations
//	@tag.description	Project export of integrations

//	@tag.name			health
//	@tag.description	Operational endpoints

package main

import (
	"os"

	"github.com/compozy/conduit/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
