package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"skep/internal/domain"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <username>",
		Short: "Generate identity keys and store them securely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			_, fp, err := appWire.Identity.Generate(passphrase, domain.UserID(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("Identity created.\nFingerprint: %s\n", fp)
			return nil
		},
	}
}
