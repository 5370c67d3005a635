package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// recv: fetch queued envelopes, answer handshakes and decrypt messages.
func recvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recv",
		Short: "Fetch and decrypt your queued messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			if appWire.Relay == nil {
				return fmt.Errorf("no relay configured. use --relay")
			}

			msgs, rejected, err := appWire.Messages.Receive(cmd.Context(), passphrase, 0)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Printf("[%s] %s\n", m.From, string(m.Plaintext))
			}
			for _, r := range rejected {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: message from %s could not be verified and was dropped (%s)\n", r.From, r.Reason)
			}
			return nil
		},
	}
}
