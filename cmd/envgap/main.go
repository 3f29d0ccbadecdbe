// Command envgap ranks places by health burden unexplained by environmental exposure.
package main

import (
	"github.com/huangsam/envgap/cmd"
	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/internal/iocache"
)

func main() {
	cmd.SetStoreManager(iocache.Manager)

	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Cannot stop profiling", stopErr)
	}
	iocache.CloseStores()
	if err != nil {
		contract.LogFatal("envgap failed", err)
	}
}
