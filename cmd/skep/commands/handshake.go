package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"skep/internal/domain"
)

// handshakeCmd runs the full key exchange against a peer and persists the
// confirmed session for future messaging.
func handshakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handshake <peer>",
		Short: "Establish a secure session with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			if appWire.Relay == nil {
				return fmt.Errorf("no relay configured. use --relay")
			}
			peer := domain.UserID(args[0])

			if err := appWire.Messages.Handshake(cmd.Context(), passphrase, peer); err != nil {
				return fmt.Errorf("secure connection could not be established with %q: %w", peer, err)
			}
			fmt.Printf("Session confirmed with %s. Verify fingerprints with: skep fingerprint %s\n", peer, peer)
			return nil
		},
	}
}
