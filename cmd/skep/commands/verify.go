package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"skep/internal/domain"
)

// verify <peer>: mark a peer's keys as verified after comparing fingerprints
// out of band.
func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <peer>",
		Short: "Mark a peer's keys as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := domain.UserID(args[0])
			if err := appWire.Contacts.Verify(peer); err != nil {
				return err
			}
			fmt.Printf("Marked %s as verified\n", peer)
			return nil
		},
	}
}
