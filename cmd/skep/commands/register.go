package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"skep/internal/crypto"
)

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Publish your public-key bundle to the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			if appWire.Relay == nil {
				return fmt.Errorf("no relay configured. use --relay")
			}

			id, err := appWire.Identity.Load(passphrase)
			if err != nil {
				return err
			}
			bundle, err := crypto.PublicBundle(id)
			if err != nil {
				return err
			}
			if err := appWire.Relay.Register(cmd.Context(), bundle); err != nil {
				return err
			}
			fmt.Printf("Registered %s with relay\n", id.UserID)
			return nil
		},
	}
}
