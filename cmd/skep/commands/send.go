package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"skep/internal/domain"
)

// send <peer> <message>: encrypt and send a message to <peer>.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			if appWire.Relay == nil {
				return fmt.Errorf("no relay configured. use --relay")
			}

			if err := appWire.Messages.Send(cmd.Context(), passphrase, domain.UserID(args[0]), []byte(args[1])); err != nil {
				return err
			}
			fmt.Println("sent")
			return nil
		},
	}
}
