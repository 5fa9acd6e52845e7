package daemon

import (
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/account-control/account-control/oracle"
)

// CommandSignAttestation returns the sign-attestation command. It signs
// offline and needs neither the config nor the database.
func CommandSignAttestation() *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "sign-attestation [reserve] [amount-sats]",
		Aliases: []string{"sa"},
		Short:   "Sign a reserve balance attestation with an attester key.",
		Long: "Sign the attested bitcoin balance of a reserve with a BIP-340 signature. " +
			"The attester is identified by the x-only public key of --key-hex.",
		Example: `acd sign-attestation qc-1 150000000 --key-hex <hex> --proof-hash <hex>`,
		Args:    cobra.ExactArgs(2),
		RunE:    runSignAttestationCmd,
	}
	cmd.Flags().String(keyHexFlag, "", "The hex encoded secp256k1 private key of the attester")
	cmd.Flags().String(proofHashFlag, "", "The hash of the proof of reserves report backing the attestation")

	if err := cmd.MarkFlagRequired(keyHexFlag); err != nil {
		panic(err)
	}

	return cmd
}

func runSignAttestationCmd(cmd *cobra.Command, args []string) error {
	amount, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", args[1], err)
	}

	flags := cmd.Flags()
	keyHex, err := flags.GetString(keyHexFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", keyHexFlag, err)
	}
	proofHashHex, err := flags.GetString(proofHashFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", proofHashFlag, err)
	}

	var proofHash chainhash.Hash
	if proofHashHex != "" {
		h, err := chainhash.NewHashFromStr(proofHashHex)
		if err != nil {
			return fmt.Errorf("invalid proof hash: %w", err)
		}
		proofHash = *h
	}

	sk, err := oracle.ParseAttesterKey(keyHex)
	if err != nil {
		return err
	}

	sa, err := oracle.SignAttestation(sk, args[0], amount, proofHash)
	if err != nil {
		return fmt.Errorf("failed to sign attestation: %w", err)
	}
	printRespJSON(cmd, sa)

	return nil
}
