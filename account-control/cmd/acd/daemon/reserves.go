package daemon

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/account-control/account-control/store"
	"github.com/babylonlabs-io/account-control/types"
)

type reserveResp struct {
	ID              string   `json:"id"`
	Status          string   `json:"status"`
	MintingCap      uint64   `json:"minting_cap"`
	Backing         uint64   `json:"backing"`
	Minted          uint64   `json:"minted"`
	MintingDisabled bool     `json:"minting_disabled"`
	Wallets         []string `json:"wallets"`
}

type reservesResp struct {
	Reserves    []reserveResp `json:"reserves"`
	TotalMinted uint64        `json:"total_minted"`
}

func newReserveResp(r *types.Reserve) reserveResp {
	return reserveResp{
		ID:              r.ID,
		Status:          r.EffectiveStatus().String(),
		MintingCap:      r.MintingCap,
		Backing:         r.Backing,
		Minted:          r.MintedAmount,
		MintingDisabled: r.MintingDisabled,
		Wallets:         r.Wallets,
	}
}

// CommandReserves returns the reserves command that prints the stored
// reserves. The daemon must not be running since it holds the database.
func CommandReserves() *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "reserves",
		Aliases: []string{"ls"},
		Short:   "List the reserves stored in the database.",
		Example: `acd reserves --home /home/user/.acd`,
		Args:    cobra.NoArgs,
		RunE:    runReservesCmd,
	}

	return cmd
}

func runReservesCmd(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dbBackend, err := cfg.DatabaseConfig.GetDBBackend()
	if err != nil {
		return fmt.Errorf("failed to create db backend: %w", err)
	}
	defer dbBackend.Close()

	reserveStore, err := store.NewReserveStore(dbBackend)
	if err != nil {
		return fmt.Errorf("failed to initiate reserve store: %w", err)
	}

	reserves, err := reserveStore.ListReserves()
	if err != nil {
		return err
	}
	total, err := reserveStore.TotalMinted()
	if err != nil {
		return err
	}

	resp := reservesResp{TotalMinted: total}
	for _, r := range reserves {
		resp.Reserves = append(resp.Reserves, newReserveResp(r))
	}
	printRespJSON(cmd, resp)

	return nil
}
