package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

// managerABI lists the calls the module makes into service manager contracts.
var managerABI = []string{
	types.SigOnBlueprintCreated,
	types.SigOnRequest,
	types.SigOnApprove,
	types.SigOnReject,
	types.SigOnServiceInitialized,
	types.SigOnJobCall,
	types.SigOnJobResult,
	types.SigOnServiceTermination,
	types.SigOnSlash,
	types.SigQuerySlashingOrigin,
	types.SigQueryDisputeOrigin,
}

func hooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hooks",
		Short: "Print the manager hook signatures and their selectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, sig := range managerABI {
				sel := types.ABISelector(sig)
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "0x%s  %s\n", hex.EncodeToString(sel[:]), sig); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
