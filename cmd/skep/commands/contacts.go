package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// contacts: list known peers and their verification status.
func contactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List known peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			peers, err := appWire.Contacts.List()
			if err != nil {
				return err
			}
			if len(peers) == 0 {
				fmt.Println("No contacts yet. Run a handshake first.")
				return nil
			}
			for _, p := range peers {
				status := "unverified"
				if p.Verified {
					status = "verified"
				}
				fmt.Printf("%s\t%s\tadded %s\n", p.PeerID, status, p.AddedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}
