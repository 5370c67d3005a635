package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// logout: destroy all established session keys. Identity and contacts stay.
func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Destroy all established session keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appWire.Store.ClearSessions(); err != nil {
				return err
			}
			fmt.Println("All sessions cleared")
			return nil
		},
	}
}
