package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"skep/internal/domain"
)

// fingerprint: without arguments, print the local key fingerprint; with a
// peer, print the shared fingerprint both sides compare out of band.
func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint [peer]",
		Short: "Show key fingerprints for out-of-band verification",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			if len(args) == 0 {
				fp, err := appWire.Identity.Fingerprint(passphrase)
				if err != nil {
					return err
				}
				fmt.Printf("Fingerprint: %s\n", fp)
				return nil
			}

			hexFP, numFP, emojiFP, err := appWire.Contacts.FingerprintWith(passphrase, domain.UserID(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("Compare with %s over a trusted channel:\n", args[0])
			fmt.Printf("  hex:     %s\n", hexFP)
			fmt.Printf("  numeric: %s\n", numFP)
			fmt.Printf("  emoji:   %s\n", emojiFP)
			return nil
		},
	}
}
